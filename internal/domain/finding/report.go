package finding

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"dental-screen/internal/domain/entity"
)

const (
	reportTitle      = "ANÁLISIS DE RADIOGRAFÍA DENTAL"
	reportDisclaimer = "NOTA: Herramienta de apoyo. No reemplaza diagnóstico profesional."
	noFindings       = "✅ Sin hallazgos significativos"
)

var interpretations = map[entity.Finding]string{
	entity.FindingCaries:   "⚠️ Caries detectadas en dientes: %s",
	entity.FindingImpacted: "⚠️ Dientes retenidos: %s",
	entity.FindingBoneLoss: "⚠️ Pérdida ósea en dientes: %s",
}

// Report собирает текстовый отчёт. Зубы в отчёте идут по возрастанию.
func Report(res *entity.AnalysisResult) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line(reportTitle)
	line(strings.Repeat("=", 50))
	line("")
	line(fmt.Sprintf("Total de detecciones: %d", res.Summary.Total))
	line("")

	for _, f := range entity.Findings {
		st, ok := res.Stats[f]
		if !ok || st.Count == 0 {
			continue
		}
		line(fmt.Sprintf("%s: %d (conf prom %.1f%%)", f, st.Count, st.ConfAvg*100))
		line("  └─ Dientes: " + joinTeeth(res.TeethByFinding[f]))
	}

	line("")
	line("INTERPRETACIÓN:")
	line(strings.Repeat("-", 50))

	for _, f := range entity.Findings {
		if res.Summary.PerClass[f] > 0 {
			line(fmt.Sprintf(interpretations[f], joinTeeth(res.TeethByFinding[f])))
		}
	}
	if res.Summary.Total == 0 {
		line(noFindings)
	}

	line("")
	b.WriteString(reportDisclaimer)
	return b.String()
}

func joinTeeth(teeth []int) string {
	sorted := slices.Clone(teeth)
	slices.Sort(sorted)

	parts := make([]string, len(sorted))
	for i, t := range sorted {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ", ")
}
