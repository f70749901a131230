package xray

import "fmt"

const (
	PanoramicMinAspect = 1.4
	PanoramicMaxAspect = 4.0
)

// Orientation мягкая оценка формата снимка. Никогда не блокирует приём.
type Orientation struct {
	PanoramicLike bool
	AspectRatio   float64
	Message       string // пусто, если формат похож на панорамный
}

// AdviseOrientation оценивает, похож ли снимок на панорамный, по соотношению сторон.
func AdviseOrientation(width, height int) Orientation {
	if height <= 0 {
		return Orientation{Message: "No se pudo calcular la relación ancho/alto."}
	}

	ratio := float64(width) / float64(height)
	if ratio >= PanoramicMinAspect && ratio <= PanoramicMaxAspect {
		return Orientation{PanoramicLike: true, AspectRatio: ratio}
	}

	return Orientation{
		AspectRatio: ratio,
		Message:     fmt.Sprintf("Relación ancho/alto %.2f:1 (podría no ser panorámica).", ratio),
	}
}
