package port

import (
	"context"
	"image"

	"dental-screen/internal/domain/entity"
)

// Detector интерфейс детектора находок на рентгенограмме
type Detector interface {
	// Detect возвращает рамки с уверенностью не ниже threshold.
	// class_id должен быть из набора entity.Findings.
	Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.RawDetection, error)

	// Name название модели для истории и /health
	Name() string
}

// Annotator рисует найденные рамки поверх снимка
type Annotator interface {
	// Annotate возвращает PNG с подписанными рамками
	Annotate(img image.Image, detections []entity.Detection) ([]byte, error)
}

// ImageFetcher скачивает снимок по ссылке
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
