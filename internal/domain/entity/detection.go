package entity

import "fmt"

// Finding тип находки, который умеет распознавать детектор
type Finding string

const (
	FindingCaries   Finding = "Caries"          // кариес
	FindingImpacted Finding = "Diente_Retenido" // ретинированный зуб
	FindingBoneLoss Finding = "Perdida_Osea"    // потеря костной ткани
)

const unknownClassName = "cls_%d"

// Findings перечисляет классы в порядке class_id детектора.
var Findings = []Finding{FindingCaries, FindingImpacted, FindingBoneLoss}

// FindingByClass возвращает тип находки по class_id детектора.
func FindingByClass(classID int) (Finding, bool) {
	if classID < 0 || classID >= len(Findings) {
		return Finding(fmt.Sprintf(unknownClassName, classID)), false
	}
	return Findings[classID], true
}

// ClassID возвращает class_id детектора для находки или -1.
func (f Finding) ClassID() int {
	for i, known := range Findings {
		if known == f {
			return i
		}
	}
	return -1
}

// BoundingBox рамка находки в пикселях исходного изображения
type BoundingBox struct {
	X1 float64 // левая граница
	Y1 float64 // верхняя граница
	X2 float64 // правая граница
	Y2 float64 // нижняя граница
}

// Center возвращает координаты центра рамки
func (b BoundingBox) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Ints возвращает рамку в целых пикселях (x1, y1, x2, y2), с отбрасыванием дробной части.
func (b BoundingBox) Ints() [4]int {
	return [4]int{int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)}
}

// RawDetection ответ детектора до привязки к зубу
type RawDetection struct {
	Box        BoundingBox
	Confidence float64
	ClassID    int
}

// Detection находка, привязанная к номеру зуба по FDI
type Detection struct {
	ClassID    int     `json:"class_id"`
	ClassName  Finding `json:"class_name"`
	Confidence float64 `json:"confidence"`
	BBox       [4]int  `json:"bbox"`
	FDI        int     `json:"fdi"`
	ToothFDI   int     `json:"tooth_fdi"` // алиас fdi для старых клиентов
}
