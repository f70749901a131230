// Package inference обращается к внешним сервисам с моделью детекции.
package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/go-resty/resty/v2"
)

// handleError превращает ответ со статусом >399 в ошибку. Без этого resty
// возвращает nil для неуспешных ответов.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}

// encodePNG кодирует снимок без потерь.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
