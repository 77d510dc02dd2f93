// Package prompts holds the prompt text shared by every enrichment client.
package prompts

import (
	"fmt"
	"strings"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/pkg/config"
	"github.com/zatekoja/woundsense/backend/pkg/utils"
)

// ReportContextBudget caps how much of the combined caption and research
// context is embedded in the report prompt.
const ReportContextBudget = 1500

// System is sent as the system message on every text request.
const System = `You are WoundSense, a clinical intelligence engine specialising in wound assessment. Analyse inputs like a senior surgeon. Provide a definitive diagnosis, tissue breakdown (granulation/slough/necrosis), exudate levels and clinical staging (Wagner/NPUAP). Always use the "### SECTION:" header format in structured reports.`

// Caption asks the vision model for a free-text clinical description.
const Caption = `As a senior surgeon, perform a detailed analysis of this wound image. Include:
- Primary tissue types: granulation, slough and necrotic tissue with estimated percentages.
- Exudate level: none, low, moderate or heavy.
- Peripheral condition: periwound maceration, erythema or edema.
- Clinical staging: Wagner grade for diabetic ulcers, otherwise NPUAP stage.

The analysis feeds a structured clinical report. Answer in clear medical English.`

// Research builds the protocol research prompt for a measurement summary.
func Research(measurementsText string, library *config.ProtocolLibrary) string {
	if library == nil {
		library = config.DefaultProtocolLibrary()
	}
	return fmt.Sprintf(`Given the clinical data: %s

Using these current protocols:
%s
Synthesise a research insight summary for the attending MD:
1. Priority protocol matches (for example the need for offloading).
2. Expected patient challenges (vascular insufficiency, fall risk from devices).
3. Recommended modern dressing types based on exudate level.

Keep the insights concise and surgical-grade.`, measurementsText, library.Render())
}

// Report builds the diagnosis prompt. contextText is cut to
// ReportContextBudget characters.
func Report(m entities.Measurements, contextText string) string {
	var b strings.Builder
	b.WriteString("Generate a wound assessment for the following case.\n\n")
	b.WriteString("WOUND MEASUREMENTS (segmentation and depth estimation):\n")
	fmt.Fprintf(&b, "  - Length : %.1f cm\n", m.Length)
	fmt.Fprintf(&b, "  - Width  : %.1f cm\n", m.Width)
	fmt.Fprintf(&b, "  - Depth  : %.1f cm\n", m.Depth)
	fmt.Fprintf(&b, "  - Area   : %.1f cm²\n", m.Area)
	fmt.Fprintf(&b, "  - Volume : %.2f cm³\n\n", m.Volume)
	b.WriteString("VISION & RESEARCH INTELLIGENCE:\n")
	b.WriteString(utils.TruncateRunes(contextText, ReportContextBudget))
	b.WriteString("\n\nWrite a STRUCTURED SURGICAL WOUND REPORT using EXACTLY these section headers, each with the ### prefix and a trailing colon:\n\n")

	for _, h := range entities.ReportSectionOrder {
		fmt.Fprintf(&b, "### %s:\n%s\n\n", h, sectionGuidance[h])
	}
	b.WriteString("Keep the language precise and concise. Do NOT change the section headers.")
	return b.String()
}

var sectionGuidance = map[string]string{
	entities.SectionClinicalFindings:  "Wound type, Wagner grade or NPUAP stage and clinical presentation.",
	entities.SectionTissueComposition: "- Granulation tissue: X%\n- Slough: X%\n- Necrosis: X%\n- Epithelialisation: X%",
	entities.SectionExudateRisk:       "Exudate level (None/Low/Moderate/Heavy), character (serous/purulent/haemoserous), infection indicators, odour and surrounding skin.",
	entities.SectionCarePlan:          "Step-by-step priority plan:\n1. Debridement approach\n2. Dressing type and frequency\n3. Offloading / pressure relief\n4. Antibiotic or antimicrobial therapy\n5. Vascular referral if indicated\n6. Next review: X days",
}
