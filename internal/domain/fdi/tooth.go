package fdi

import (
	"errors"
	"fmt"
)

// ErrInvalidCode код вне диапазонов 11-18, 21-28, 31-38, 41-48.
var ErrInvalidCode = errors.New("Número FDI inválido. Debe ser 11-18, 21-28, 31-38 o 41-48")

const permanentType = "Permanente"

var quadrantNames = map[int]string{
	1: "Superior Derecho",
	2: "Superior Izquierdo",
	3: "Inferior Izquierdo",
	4: "Inferior Derecho",
}

var toothNames = map[int]string{
	1: "Incisivo Central",
	2: "Incisivo Lateral",
	3: "Canino",
	4: "Primer Premolar",
	5: "Segundo Premolar",
	6: "Primer Molar",
	7: "Segundo Molar",
	8: "Tercer Molar (Muela del Juicio)",
}

// Tooth справочная информация по одному зубу.
type Tooth struct {
	FDI          int    `json:"fdi"`
	Quadrant     int    `json:"quadrant"`
	QuadrantName string `json:"quadrant_name"`
	Position     int    `json:"position"`
	ToothName    string `json:"tooth_name"`
	ToothType    string `json:"tooth_type"`
	FullName     string `json:"full_name"`
	Description  string `json:"description"`
}

// Valid сообщает, является ли код номером постоянного зуба.
func Valid(code int) bool {
	quadrant, position := code/10, code%10
	return quadrant >= 1 && quadrant <= 4 && position >= 1 && position <= positionsPerQuadrant
}

func Lookup(code int) (Tooth, error) {
	if !Valid(code) {
		return Tooth{}, fmt.Errorf("%w: %d", ErrInvalidCode, code)
	}

	quadrant, position := code/10, code%10
	qName, tName := quadrantNames[quadrant], toothNames[position]
	return Tooth{
		FDI:          code,
		Quadrant:     quadrant,
		QuadrantName: qName,
		Position:     position,
		ToothName:    tName,
		ToothType:    permanentType,
		FullName:     tName + " " + qName,
		Description:  fmt.Sprintf("Diente %d - %s del cuadrante %s", code, tName, qName),
	}, nil
}

// QuadrantInfo квадрант и его зубы для карты FDI.
type QuadrantInfo struct {
	Name  string `json:"name"`
	Teeth []int  `json:"teeth"`
}

// ChartInfo полная карта нумерации.
type ChartInfo struct {
	Quadrants           map[int]QuadrantInfo `json:"quadrants"`
	ToothPositions      map[int]string       `json:"tooth_positions"`
	TotalPermanentTeeth int                  `json:"total_permanent_teeth"`
	Description         string               `json:"description"`
}

func Chart() ChartInfo {
	chart := ChartInfo{
		Quadrants:      make(map[int]QuadrantInfo, len(quadrantNames)),
		ToothPositions: make(map[int]string, len(toothNames)),
		Description:    "Sistema FDI de numeración dental internacional",
	}
	for q, name := range quadrantNames {
		teeth := make([]int, 0, positionsPerQuadrant)
		for p := 1; p <= positionsPerQuadrant; p++ {
			teeth = append(teeth, q*10+p)
		}
		chart.Quadrants[q] = QuadrantInfo{Name: name, Teeth: teeth}
		chart.TotalPermanentTeeth += len(teeth)
	}
	for p, name := range toothNames {
		chart.ToothPositions[p] = name
	}
	chart.ToothPositions[positionsPerQuadrant] = "Tercer Molar"
	return chart
}
