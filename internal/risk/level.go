package risk

// Level is the coarse classification shown next to a score.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// LevelFromScore derives the Level from a score in [0,100].
func LevelFromScore(score int) Level {
	switch {
	case score >= 60:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	default:
		return LevelLow
	}
}
