//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// Annotator рисует рамки и подписи без OpenCV
type Annotator struct {
	face font.Face
}

func NewAnnotator() *Annotator {
	return &Annotator{face: basicfont.Face7x13}
}

// Annotate возвращает PNG с рамками находок. Исходное изображение не меняется.
func (a *Annotator) Annotate(img image.Image, detections []entity.Detection) ([]byte, error) {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	for _, d := range detections {
		c := ClassColor(d.ClassName)
		rect := image.Rect(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
		strokeRect(canvas, rect, c, strokeWidth)
		a.drawLabel(canvas, rect.Min, label(d), c)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLabel рисует подпись на цветной плашке над рамкой, как делает детектор в отчёте
func (a *Annotator) drawLabel(canvas *image.RGBA, at image.Point, text string, bg color.RGBA) {
	metrics := a.face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil() + 4
	width := font.MeasureString(a.face, text).Ceil() + 4

	top := at.Y - height
	if top < 0 {
		top = at.Y
	}
	plate := image.Rect(at.X, top, at.X+width, top+height)
	draw.Draw(canvas, plate, &image.Uniform{C: bg}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.White,
		Face: a.face,
		Dot:  fixed.P(at.X+2, top+2+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(text)
}

func strokeRect(canvas *image.RGBA, r image.Rectangle, c color.RGBA, width int) {
	src := &image.Uniform{C: c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(canvas, e.Intersect(canvas.Bounds()), src, image.Point{}, draw.Src)
	}
}

var _ port.Annotator = (*Annotator)(nil)
