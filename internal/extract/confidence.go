package extract

// Fixed five-level ordinal confidence scale used throughout the system
const (
	ConfidenceCertain     = 0.95
	ConfidenceHigh        = 0.80
	ConfidenceMedium      = 0.60
	ConfidenceLow         = 0.40
	ConfidenceSpeculative = 0.25
)

// ConfidenceValue maps a confidence label to its numeric value. The
// mapping is total: unrecognized labels fall back to the medium default.
func ConfidenceValue(label string) float64 {
	switch label {
	case "certain":
		return ConfidenceCertain
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	case "low":
		return ConfidenceLow
	case "speculative":
		return ConfidenceSpeculative
	default:
		return ConfidenceMedium
	}
}
