package finding

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dental-screen/internal/domain/entity"
)

// Aggregate считает итоги по классам и формирует текстовый отчёт.
// Пустой список находок даёт корректный результат с нулевыми счётчиками.
func Aggregate(dets []entity.Detection) *entity.AnalysisResult {
	perClass := make(map[entity.Finding]int, len(entity.Findings))
	teeth := make(map[entity.Finding][]int, len(entity.Findings))
	confidences := make(map[entity.Finding][]float64, len(entity.Findings))
	for _, f := range entity.Findings {
		perClass[f] = 0
		teeth[f] = []int{}
	}

	for _, d := range dets {
		perClass[d.ClassName]++
		confidences[d.ClassName] = append(confidences[d.ClassName], d.Confidence)
		if !contains(teeth[d.ClassName], d.FDI) {
			teeth[d.ClassName] = append(teeth[d.ClassName], d.FDI)
		}
	}

	stats := make(map[entity.Finding]entity.ClassStats)
	for f, conf := range confidences {
		stats[f] = entity.ClassStats{
			Count:   len(conf),
			ConfAvg: stat.Mean(conf, nil),
			ConfMin: floats.Min(conf),
			ConfMax: floats.Max(conf),
		}
	}

	if dets == nil {
		dets = []entity.Detection{}
	}

	res := &entity.AnalysisResult{
		Summary:        entity.Summary{Total: len(dets), PerClass: perClass},
		Detections:     dets,
		Stats:          stats,
		TeethByFinding: teeth,
	}
	res.ReportText = Report(res)
	return res
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
