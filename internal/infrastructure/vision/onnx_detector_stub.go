//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"

	"github.com/rs/zerolog"

	"dental-screen/internal/domain/entity"
)

// ErrGoCVDisabled сборка без тега gocv
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

type ONNXDetector struct {
	InputSize    int
	NMSThreshold float32
	NumClasses   int
}

// NewONNXDetector возвращает ошибку, если сборка без тега gocv.
func NewONNXDetector(modelPath, name string, logger zerolog.Logger) (*ONNXDetector, error) {
	_ = modelPath
	_ = name
	_ = logger
	return nil, ErrGoCVDisabled
}

func (d *ONNXDetector) Name() string { return "" }

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.RawDetection, error) {
	_ = ctx
	_ = img
	_ = threshold
	return nil, ErrGoCVDisabled
}

func (d *ONNXDetector) Close() error { return nil }
