// Package fdi переводит положение находки на панорамном снимке в номер зуба по системе FDI.
package fdi

import (
	"math"

	"dental-screen/internal/domain/entity"
)

const positionsPerQuadrant = 8

// Calculate возвращает код FDI по нормированному центру рамки (0..1).
// Снимок зеркальный: левая половина изображения соответствует правой стороне пациента.
func Calculate(x, y float64) int {
	var quadrant int
	switch {
	case y < 0.5 && x < 0.5:
		quadrant = 1
	case y < 0.5:
		quadrant = 2
	case x < 0.5:
		quadrant = 4
	default:
		quadrant = 3
	}

	m := math.Mod(x, 0.5)
	if m < 0 {
		m += 0.5
	}
	relative := m / 0.5

	position := int(relative*positionsPerQuadrant) + 1
	position = max(1, min(position, positionsPerQuadrant))

	return quadrant*10 + position
}

// FromBox считает код FDI по центру рамки в пикселях.
func FromBox(box entity.BoundingBox, width, height int) int {
	if width <= 0 || height <= 0 {
		return Calculate(0, 0)
	}
	cx, cy := box.Center()
	return Calculate(cx/float64(width), cy/float64(height))
}
