//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// ONNXDetector запускает экспортированную YOLO-модель через OpenCV DNN.
// gocv.Net не потокобезопасен, вызовы Forward сериализуются.
type ONNXDetector struct {
	InputSize    int
	NMSThreshold float32
	NumClasses   int

	name   string
	logger zerolog.Logger

	mu  sync.Mutex
	net gocv.Net
}

// NewONNXDetector загружает модель из файла .onnx
func NewONNXDetector(modelPath, name string, logger zerolog.Logger) (*ONNXDetector, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load onnx model %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &ONNXDetector{
		InputSize:    640,
		NMSThreshold: 0.45,
		NumClasses:   len(entity.Findings),
		name:         name,
		logger:       logger,
		net:          net,
	}, nil
}

func (d *ONNXDetector) Name() string { return d.name }

// Detect прогоняет снимок через сеть. Выход YOLOv8: [1, 4+classes, anchors].
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]entity.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	size := image.Pt(d.InputSize, d.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	start := time.Now()
	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 || dims[1] != 4+d.NumClasses {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	anchors := dims[2]

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}

	scaleX := float64(mat.Cols()) / float64(d.InputSize)
	scaleY := float64(mat.Rows()) / float64(d.InputSize)

	var (
		boxes  []image.Rectangle
		scores []float32
		raws   []entity.RawDetection
	)
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < d.NumClasses; c++ {
			if s := data[(4+c)*anchors+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || float64(bestScore) < threshold {
			continue
		}

		cx, cy := float64(data[i]), float64(data[anchors+i])
		w, h := float64(data[2*anchors+i]), float64(data[3*anchors+i])
		box := entity.BoundingBox{
			X1: (cx - w/2) * scaleX,
			Y1: (cy - h/2) * scaleY,
			X2: (cx + w/2) * scaleX,
			Y2: (cy + h/2) * scaleY,
		}

		boxes = append(boxes, image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)))
		scores = append(scores, bestScore)
		raws = append(raws, entity.RawDetection{Box: box, Confidence: float64(bestScore), ClassID: best})
	}

	if len(raws) == 0 {
		return []entity.RawDetection{}, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(threshold), d.NMSThreshold)
	result := make([]entity.RawDetection, 0, len(keep))
	for _, idx := range keep {
		result = append(result, raws[idx])
	}

	d.logger.Debug().
		Dur("took", time.Since(start)).
		Int("candidates", len(raws)).
		Int("detections", len(result)).
		Msg("onnx detection finished")
	return result, nil
}

// Close освобождает сеть
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

var _ port.Detector = (*ONNXDetector)(nil)
