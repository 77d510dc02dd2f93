package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Protocol is one care-protocol entry fed to the research prompt.
type Protocol struct {
	Name  string   `yaml:"name"`
	Steps []string `yaml:"steps"`
}

// ProtocolLibrary is the set of clinical protocols the research stage
// matches measurements against.
type ProtocolLibrary struct {
	Title     string     `yaml:"title"`
	Protocols []Protocol `yaml:"protocols"`
}

// DefaultProtocolLibrary returns the built-in Wagner grade 2 protocol set.
func DefaultProtocolLibrary() *ProtocolLibrary {
	return &ProtocolLibrary{
		Title: "Wagner Grade 2 Protocols (2025-2026)",
		Protocols: []Protocol{
			{Name: "Sharp Debridement", Steps: []string{"Preferred method to remove necrotic tissue and callus."}},
			{Name: "Infection Control", Steps: []string{
				"Recognized by signs like erythema/purulence.",
				"Empiric oral antibiotics for mild; parenteral for moderate/severe.",
			}},
			{Name: "Offloading", Steps: []string{"CRITICAL. Non-removable knee-high devices are first-line."}},
			{Name: "Environment", Steps: []string{"Moist wound healing dressings (non-sucrose-octasulfate for non-infected)."}},
			{Name: "Vascular", Steps: []string{"Revascularization if ABI < 0.5 or pulses absent."}},
		},
	}
}

// LoadProtocolLibrary reads a YAML protocol library. An empty path returns
// the built-in library.
func LoadProtocolLibrary(path string) (*ProtocolLibrary, error) {
	if path == "" {
		return DefaultProtocolLibrary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read protocol library: %w", err)
	}

	var lib ProtocolLibrary
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("failed to parse protocol library %s: %w", path, err)
	}
	if len(lib.Protocols) == 0 {
		return nil, fmt.Errorf("protocol library %s has no protocols", path)
	}
	return &lib, nil
}

// Render formats the library as prompt context.
func (l *ProtocolLibrary) Render() string {
	var b strings.Builder
	b.WriteString(l.Title)
	b.WriteString(":\n")
	for _, p := range l.Protocols {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, strings.Join(p.Steps, " "))
	}
	return b.String()
}
