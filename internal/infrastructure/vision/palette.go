// Package vision рисует находки на снимке и запускает локальную модель через OpenCV.
package vision

import (
	"fmt"
	"image/color"

	"dental-screen/internal/domain/entity"
)

var (
	classColors = map[entity.Finding]color.RGBA{
		entity.FindingCaries:   {R: 255, A: 255},
		entity.FindingImpacted: {G: 255, A: 255},
		entity.FindingBoneLoss: {B: 255, A: 255},
	}
	fallbackColor = color.RGBA{R: 255, G: 255, A: 255}
)

const strokeWidth = 3

// ClassColor цвет рамки для класса находки
func ClassColor(f entity.Finding) color.RGBA {
	if c, ok := classColors[f]; ok {
		return c
	}
	return fallbackColor
}

// HexColor цвет класса в виде #rrggbb для клиентов
func HexColor(f entity.Finding) string {
	c := ClassColor(f)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// label подпись рамки: класс, номер зуба и уверенность
func label(d entity.Detection) string {
	return fmt.Sprintf("%s [%d]: %.1f%%", d.ClassName, d.FDI, d.Confidence*100)
}
