package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleReport = `Preamble the model added.

### CLINICAL FINDINGS & CLASSIFICATION:
Diabetic foot ulcer, Wagner Grade 2.

### TISSUE COMPOSITION:
- Granulation tissue: 60%
- Slough: 30%

**EXUDATE & INFECTION RISK:**
Moderate serous exudate.

### MD RECOMMENDED CARE PLAN:
1. Sharp debridement
2. Next review: 7 days`

func TestParseReportSections_AllSections(t *testing.T) {
	sections := ParseReportSections(sampleReport)

	assert.Empty(t, sections.Missing())
	assert.Equal(t, "Diabetic foot ulcer, Wagner Grade 2.", sections[SectionClinicalFindings])
	assert.Equal(t, "- Granulation tissue: 60%\n- Slough: 30%", sections[SectionTissueComposition])
	assert.Equal(t, "Moderate serous exudate.", sections[SectionExudateRisk])
	assert.Contains(t, sections[SectionCarePlan], "Next review: 7 days")
}

func TestParseReportSections_ToleratesMissingSections(t *testing.T) {
	sections := ParseReportSections("### TISSUE COMPOSITION:\nunknown\n### SOMETHING ELSE:\nextra")

	assert.Equal(t, []string{SectionClinicalFindings, SectionExudateRisk, SectionCarePlan}, sections.Missing())
	assert.Equal(t, "unknown\n### SOMETHING ELSE:\nextra", sections[SectionTissueComposition])
}

func TestParseReportSections_FreeText(t *testing.T) {
	assert.Empty(t, ParseReportSections("the model ignored the format"))
}

func TestClassifyWagnerGrade(t *testing.T) {
	assert.Equal(t, GradeTwo, ClassifyWagnerGrade(sampleReport))
	assert.Equal(t, GradeOne, ClassifyWagnerGrade("wagner grade 1 superficial"))
	assert.Equal(t, "", ClassifyWagnerGrade("NPUAP stage 3"))
}

func TestHasClinicalAlert(t *testing.T) {
	assert.True(t, HasClinicalAlert("Signs of INFECTION around margin"))
	assert.True(t, HasClinicalAlert("necrotic base"))
	assert.False(t, HasClinicalAlert(sampleReport))
}

func TestParseReportSections_TitleCaseHeaders(t *testing.T) {
	report := "### Clinical Findings & Classification:\nVenous leg ulcer.\n\n" +
		"**Tissue Composition**\n- Granulation tissue: 70%\n\n" +
		"Exudate & Infection Risk:\nLow.\n\n" +
		"### md recommended care plan:\nCompression."

	sections := ParseReportSections(report)

	assert.Empty(t, sections.Missing())
	assert.Equal(t, "Venous leg ulcer.", sections[SectionClinicalFindings])
	assert.Equal(t, "- Granulation tissue: 70%", sections[SectionTissueComposition])
	assert.Equal(t, "Low.", sections[SectionExudateRisk])
	assert.Equal(t, "Compression.", sections[SectionCarePlan])
}

func TestHasClinicalAlert_IgnoresNegatedTerms(t *testing.T) {
	assert.False(t, HasClinicalAlert("Low infection risk."))
	assert.False(t, HasClinicalAlert("No necrotic tissue. Non-critical presentation."))
	assert.False(t, HasClinicalAlert("### EXUDATE & INFECTION RISK:\nMinimal exudate, without infection."))
	assert.True(t, HasClinicalAlert("No necrotic tissue, but spreading infection."))
}
