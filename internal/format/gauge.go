package format

// Level classifies a resource gauge.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelCritical:
		return "critical"
	default:
		return "ok"
	}
}

// Color returns the hex color of the level.
func (l Level) Color() string {
	switch l {
	case LevelWarn:
		return "#ed8936"
	case LevelCritical:
		return "#f56565"
	default:
		return "#48bb78"
	}
}

// GaugeLevel classifies a rounded percentage: above 90 is critical, above 70
// is a warning.
func GaugeLevel(percent int) Level {
	switch {
	case percent > 90:
		return LevelCritical
	case percent > 70:
		return LevelWarn
	default:
		return LevelOK
	}
}
