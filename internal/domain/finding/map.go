// Package finding привязывает находки детектора к зубам и собирает итог анализа.
package finding

import (
	"errors"
	"fmt"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/fdi"
)

// ErrUnknownClass детектор вернул class_id вне известного набора.
var ErrUnknownClass = errors.New("unknown detector class")

// Map переводит сырые находки в Detection с номером зуба. Порядок сохраняется.
func Map(raws []entity.RawDetection, width, height int) ([]entity.Detection, error) {
	dets := make([]entity.Detection, 0, len(raws))
	for _, raw := range raws {
		name, ok := entity.FindingByClass(raw.ClassID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
		}

		code := fdi.FromBox(raw.Box, width, height)
		dets = append(dets, entity.Detection{
			ClassID:    raw.ClassID,
			ClassName:  name,
			Confidence: raw.Confidence,
			BBox:       raw.Box.Ints(),
			FDI:        code,
			ToothFDI:   code,
		})
	}
	return dets, nil
}
