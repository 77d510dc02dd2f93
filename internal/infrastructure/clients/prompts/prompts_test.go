package prompts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/pkg/config"
)

func TestResearch_EmbedsMeasurementsAndProtocols(t *testing.T) {
	lib := &config.ProtocolLibrary{
		Title:     "Pressure Injury Protocols",
		Protocols: []config.Protocol{{Name: "Repositioning", Steps: []string{"Every 2 hours."}}},
	}

	prompt := Research("length=2.0 cm", lib)

	assert.Contains(t, prompt, "Given the clinical data: length=2.0 cm")
	assert.Contains(t, prompt, "Pressure Injury Protocols:\n- Repositioning: Every 2 hours.")
}

func TestResearch_DefaultLibrary(t *testing.T) {
	assert.Contains(t, Research("x", nil), "Wagner Grade 2 Protocols")
}

func TestReport_ListsEverySectionHeader(t *testing.T) {
	prompt := Report(entities.Measurements{Length: 2, Width: 1.5, Depth: 0.4, Area: 3, Volume: 0.84}, "granulating bed")

	for _, h := range entities.ReportSectionOrder {
		assert.Contains(t, prompt, "### "+h+":")
	}
	assert.Contains(t, prompt, "Area   : 3.0 cm²")
	assert.Contains(t, prompt, "Volume : 0.84 cm³")
	assert.Contains(t, prompt, "granulating bed")

	parsed := entities.ParseReportSections(prompt)
	assert.Empty(t, parsed.Missing())
}

func TestReport_TruncatesContext(t *testing.T) {
	long := strings.Repeat("ü", ReportContextBudget+200)

	prompt := Report(entities.Measurements{}, long)

	embedded := strings.Repeat("ü", ReportContextBudget)
	assert.Contains(t, prompt, embedded+"\n\n")
	assert.NotContains(t, prompt, embedded+"ü")
	assert.True(t, utf8.ValidString(prompt))
}
