package entities

import "fmt"

// Measurements holds the wound geometry in centimetre units.
type Measurements struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Area   float64 `json:"area"`
	Volume float64 `json:"volume"`
}

// PlaceholderMeasurements is substituted when no wound geometry could be
// extracted. The values are nominal, not measured, and mark the assessment
// as qualitative-only.
var PlaceholderMeasurements = Measurements{
	Length: 1,
	Width:  1,
	Depth:  0.5,
	Area:   0.1,
	Volume: 0.05,
}

// IsZero reports whether every dimension is zero.
func (m Measurements) IsZero() bool {
	return m == Measurements{}
}

// String renders the measurements as the text seed for protocol research.
func (m Measurements) String() string {
	return fmt.Sprintf(
		"length=%.1f cm, width=%.1f cm, depth=%.1f cm, area=%.1f cm², volume=%.2f cm³",
		m.Length, m.Width, m.Depth, m.Area, m.Volume,
	)
}
