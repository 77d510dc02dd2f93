package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/pkg/utils"
)

// ResearchContextBudget is how many characters of the research summary are
// passed to report synthesis. It bounds prompt size; the cut is not
// content-aware and may fall mid-sentence.
const ResearchContextBudget = 500

// BuildDiagnosisContext combines the vision caption with a truncated prefix
// of the research summary.
func BuildDiagnosisContext(visionCaption, researchSummary string) string {
	return visionCaption + "\nResearch Protocol Info: " + utils.TruncateRunes(researchSummary, ResearchContextBudget)
}

// FallbackReport is the degraded report used when report synthesis fails.
// It keeps the section skeleton and the measurements computed so far.
func FallbackReport(m entities.Measurements) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s:\n", entities.SectionClinicalFindings)
	b.WriteString("Diagnosis generation failed. Manual review required.\n\n")
	fmt.Fprintf(&b, "### %s:\n", entities.SectionTissueComposition)
	b.WriteString("Data unavailable.\n\n")
	fmt.Fprintf(&b, "### %s:\n", entities.SectionExudateRisk)
	b.WriteString("Data unavailable.\n\n")
	fmt.Fprintf(&b, "### %s:\n", entities.SectionCarePlan)
	fmt.Fprintf(&b, "Measurements recovered: Area=%scm², Volume=%scm³, Length=%scm, Width=%scm, Depth=%scm.\n",
		formatMeasure(m.Area), formatMeasure(m.Volume), formatMeasure(m.Length), formatMeasure(m.Width), formatMeasure(m.Depth))
	b.WriteString("Please review manually with clinical staff.")
	return b.String()
}

// formatMeasure prints the shortest exact form with at least one decimal.
func formatMeasure(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
