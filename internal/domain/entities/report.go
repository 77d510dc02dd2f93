package entities

import (
	"regexp"
	"strings"
)

// Section headers the report prompt asks the enrichment service to emit.
const (
	SectionClinicalFindings  = "CLINICAL FINDINGS & CLASSIFICATION"
	SectionTissueComposition = "TISSUE COMPOSITION"
	SectionExudateRisk       = "EXUDATE & INFECTION RISK"
	SectionCarePlan          = "MD RECOMMENDED CARE PLAN"
)

// ReportSectionOrder lists the section headers in report order.
var ReportSectionOrder = []string{
	SectionClinicalFindings,
	SectionTissueComposition,
	SectionExudateRisk,
	SectionCarePlan,
}

// ReportSections maps a section header to its body. Sections the report did
// not contain are absent.
type ReportSections map[string]string

// Missing returns the expected headers that were not found.
func (s ReportSections) Missing() []string {
	var missing []string
	for _, h := range ReportSectionOrder {
		if _, ok := s[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Matches "### HEADER:", "**Header**", "HEADER:" and similar markdown variants
// on a line of their own, in any letter case.
var sectionHeaderPattern = regexp.MustCompile(`^[#*\s]*([A-Za-z][A-Za-z &/]+?)[*\s]*:?[*\s]*$`)

// ParseReportSections splits a synthesized report into its known sections.
// Parsing is best-effort: unknown headers are folded into the preceding
// section and text before the first header is dropped.
func ParseReportSections(report string) ReportSections {
	sections := ReportSections{}
	current := ""
	var body []string

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(report, "\n") {
		if header, ok := matchSectionHeader(line); ok {
			flush()
			current = header
			continue
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()
	return sections
}

func matchSectionHeader(line string) (string, bool) {
	m := sectionHeaderPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	candidate := strings.ToUpper(strings.TrimSpace(m[1]))
	for _, h := range ReportSectionOrder {
		if candidate == h {
			return h, true
		}
	}
	return "", false
}

// Wagner grade buckets used by the analytics breakdown.
const (
	GradeOne   = "Grade 1"
	GradeTwo   = "Grade 2"
	GradeThree = "Grade 3"
)

// ClassifyWagnerGrade returns the first Wagner grade bucket mentioned in the
// report, or "" when none is.
func ClassifyWagnerGrade(report string) string {
	upper := strings.ToUpper(report)
	switch {
	case strings.Contains(upper, "GRADE 1"):
		return GradeOne
	case strings.Contains(upper, "GRADE 2"):
		return GradeTwo
	case strings.Contains(upper, "GRADE 3"):
		return GradeThree
	}
	return ""
}

var alertTerms = []string{"infection", "critical", "necrotic", "high risk", "emergency"}

// Words that cancel an alert term directly after them, e.g. "low infection
// risk" or "no necrotic tissue".
var alertNegators = map[string]bool{
	"no": true, "not": true, "low": true, "without": true, "minimal": true, "non": true,
}

// HasClinicalAlert reports whether the report mentions any alert term outside
// the section headers, ignoring terms directly preceded by a negator.
func HasClinicalAlert(report string) bool {
	lower := strings.ToLower(report)
	for _, h := range ReportSectionOrder {
		lower = strings.ReplaceAll(lower, strings.ToLower(h), "")
	}
	for _, term := range alertTerms {
		rest := lower
		offset := 0
		for {
			i := strings.Index(rest, term)
			if i < 0 {
				break
			}
			if !negated(lower[:offset+i]) {
				return true
			}
			offset += i + len(term)
			rest = lower[offset:]
		}
	}
	return false
}

// negated reports whether the last word of prefix is a negator.
func negated(prefix string) bool {
	words := strings.FieldsFunc(prefix, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '-' || r == ',' || r == '.' || r == ':'
	})
	if len(words) == 0 {
		return false
	}
	return alertNegators[words[len(words)-1]]
}
