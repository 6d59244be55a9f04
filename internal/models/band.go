package models

// Band is the qualitative label derived from a match score
type Band struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Hex   string `json:"hex"`
}

var (
	BandExcellent = Band{Label: "Excellent", Color: "green", Hex: "#22c55e"}
	BandModerate  = Band{Label: "Moderate", Color: "amber", Hex: "#f59e0b"}
	BandLow       = Band{Label: "Low", Color: "red", Hex: "#ef4444"}
)

// BandFor maps a score to its band: above 75 is Excellent,
// above 50 is Moderate, anything else is Low.
func BandFor(score int) Band {
	switch {
	case score > 75:
		return BandExcellent
	case score > 50:
		return BandModerate
	default:
		return BandLow
	}
}
