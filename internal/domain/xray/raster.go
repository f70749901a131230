// Package xray решает, похож ли загруженный файл на пригодную стоматологическую рентгенограмму.
package xray

import (
	"image"
	"image/color"
)

// Raster декодированное изображение, приведённое к 8-битному RGB.
// Живёт только в рамках одного запроса.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8 // RGB построчно, 3 байта на пиксель
}

// NewRaster создаёт чёрный растр заданного размера.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// RGBAt возвращает каналы пикселя.
func (r *Raster) RGBAt(x, y int) (uint8, uint8, uint8) {
	i := (y*r.Width + x) * 3
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// SetRGB записывает каналы пикселя.
func (r *Raster) SetRGB(x, y int, red, green, blue uint8) {
	i := (y*r.Width + x) * 3
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = red, green, blue
}

func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.Width, r.Height) }

func (r *Raster) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(r.Bounds()) {
		return color.RGBA{}
	}
	red, green, blue := r.RGBAt(x, y)
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}

// FromImage приводит любое image.Image к RGB-растру.
// Альфа-канал отбрасывается без домножения, как при конвертации в RGB.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	out := NewRaster(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *Raster:
		copy(out.Pix, src.Pix)
	case *image.Gray:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				v := src.GrayAt(b.Min.X+x, b.Min.Y+y).Y
				out.SetRGB(x, y, v, v, v)
			}
		}
	case *image.YCbCr:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				yi := src.YOffset(b.Min.X+x, b.Min.Y+y)
				ci := src.COffset(b.Min.X+x, b.Min.Y+y)
				red, green, blue := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				out.SetRGB(x, y, red, green, blue)
			}
		}
	default:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				out.SetRGB(x, y, c.R, c.G, c.B)
			}
		}
	}

	return out
}
