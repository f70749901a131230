//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// Annotator рисует рамки и подписи средствами OpenCV
type Annotator struct {
	FontScale float64
}

func NewAnnotator() *Annotator {
	return &Annotator{FontScale: 0.5}
}

// Annotate возвращает PNG с рамками находок
func (a *Annotator) Annotate(img image.Image, detections []entity.Detection) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	for _, d := range detections {
		c := ClassColor(d.ClassName)
		rect := image.Rect(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
		gocv.Rectangle(&mat, rect, c, strokeWidth)

		text := label(d)
		size := gocv.GetTextSize(text, gocv.FontHersheySimplex, a.FontScale, 1)
		top := rect.Min.Y - size.Y - 8
		if top < 0 {
			top = rect.Min.Y
		}
		plate := image.Rect(rect.Min.X, top, rect.Min.X+size.X+4, top+size.Y+8)
		gocv.Rectangle(&mat, plate, c, -1)
		gocv.PutText(&mat, text, image.Pt(rect.Min.X+2, top+size.Y+4), gocv.FontHersheySimplex, a.FontScale, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

var _ port.Annotator = (*Annotator)(nil)
