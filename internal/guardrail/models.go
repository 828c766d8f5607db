// internal/guardrail/models.go
package guardrail

import "fmt"

// ThreatLevel classifies scanned content. Levels are totally ordered so the
// highest matched level wins.
type ThreatLevel int

const (
	LevelSafe ThreatLevel = iota
	LevelSuspicious
	LevelDangerous
)

func (l ThreatLevel) String() string {
	switch l {
	case LevelSafe:
		return "safe"
	case LevelSuspicious:
		return "suspicious"
	case LevelDangerous:
		return "dangerous"
	default:
		return fmt.Sprintf("threatlevel(%d)", int(l))
	}
}

func (l ThreatLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *ThreatLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "safe":
		*l = LevelSafe
	case "suspicious":
		*l = LevelSuspicious
	case "dangerous":
		*l = LevelDangerous
	default:
		return fmt.Errorf("unknown threat level: %q", text)
	}
	return nil
}

// ScanResult is the outcome of a guardrail scan. Content carries the
// possibly redacted text the caller should use downstream.
type ScanResult struct {
	Level   ThreatLevel `json:"level"`
	Matches []string    `json:"matches"`
	Details string      `json:"details"`
	Content string      `json:"content"`
}
