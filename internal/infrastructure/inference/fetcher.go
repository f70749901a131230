package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"dental-screen/internal/domain/port"
)

// ErrTooLarge ответ по ссылке больше допустимого размера
var ErrTooLarge = errors.New("remote image is too large")

// Fetcher скачивает снимки по ссылке
type Fetcher struct {
	client   *resty.Client
	maxBytes int64
}

// NewFetcher создаёт загрузчик. maxBytes <= 0 снимает ограничение размера.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   resty.New().SetDebug(false).SetTimeout(timeout).SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
		maxBytes: maxBytes,
	}
}

// Fetch читает тело ответа потоком и обрывает загрузку сразу после превышения maxBytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	res, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("download image: request failed: GET %s (status: %d)", url, res.StatusCode())
	}
	if f.maxBytes <= 0 {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		return data, nil
	}
	if n := res.RawResponse.ContentLength; n > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

var _ port.ImageFetcher = (*Fetcher)(nil)
