package entity

// ClassStats статистика уверенности по одному классу находок.
type ClassStats struct {
	Count   int     `json:"count"`
	ConfAvg float64 `json:"conf_avg"`
	ConfMin float64 `json:"conf_min"`
	ConfMax float64 `json:"conf_max"`
}

// Summary итоговые счётчики анализа.
type Summary struct {
	Total    int             `json:"total"`
	PerClass map[Finding]int `json:"per_class"`
}

// AnalysisResult хранит итог анализа снимка.
type AnalysisResult struct {
	Summary        Summary                `json:"summary"`
	Detections     []Detection            `json:"detections"`
	Stats          map[Finding]ClassStats `json:"stats"`
	ReportText     string                 `json:"report_text"`
	TeethByFinding map[Finding][]int      `json:"teeth_fdi"` // зубы в порядке первого появления, без повторов
}
