package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// RemoteDetector отправляет снимок во внешний сервис модели по HTTP
type RemoteDetector struct {
	client *resty.Client
	model  string
	logger zerolog.Logger
}

type predictResponse struct {
	Model      string          `json:"model"`
	Detections []wireDetection `json:"detections"`
}

// wireDetection формат находки во внешнем сервисе: рамка x1, y1, x2, y2 в пикселях.
type wireDetection struct {
	ClassID    int        `json:"class_id"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"`
}

// NewRemoteDetector создаёт клиент сервиса модели по базовому URL
func NewRemoteDetector(baseURL, model string, timeout time.Duration, logger zerolog.Logger) *RemoteDetector {
	return &RemoteDetector{
		client: resty.New().
			SetDebug(false).
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		model:  model,
		logger: logger,
	}
}

func (d *RemoteDetector) Name() string { return d.model }

// Detect отправляет PNG на /predict и возвращает находки не ниже порога
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.RawDetection, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &predictResponse{}
	_, err = handleError(d.client.R().
		SetContext(ctx).
		SetFileReader("file", "image.png", bytes.NewReader(data)).
		SetFormData(map[string]string{
			"confidence": strconv.FormatFloat(threshold, 'f', -1, 64),
		}).
		SetResult(result).
		Post("/predict"))
	if err != nil {
		return nil, fmt.Errorf("remote predict: %w", err)
	}

	raws := make([]entity.RawDetection, 0, len(result.Detections))
	for _, wd := range result.Detections {
		// Сервис может игнорировать порог, фильтруем сами.
		if wd.Confidence < threshold {
			continue
		}
		raws = append(raws, entity.RawDetection{
			Box:        entity.BoundingBox{X1: wd.Box[0], Y1: wd.Box[1], X2: wd.Box[2], Y2: wd.Box[3]},
			Confidence: wd.Confidence,
			ClassID:    wd.ClassID,
		})
	}

	d.logger.Debug().
		Dur("took", time.Since(start)).
		Int("detections", len(raws)).
		Str("model", result.Model).
		Msg("remote detection finished")
	return raws, nil
}

// CheckHealth проверяет доступность сервиса модели
func (d *RemoteDetector) CheckHealth(ctx context.Context) error {
	_, err := handleError(d.client.R().SetContext(ctx).Get("/health"))
	if err != nil {
		return fmt.Errorf("ml service unhealthy: %w", err)
	}
	return nil
}

var _ port.Detector = (*RemoteDetector)(nil)
