package domain

import "strings"

// Level classifies a single line of script output.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// markers maps the inline prefixes of the process-observer contract to levels.
// A spawned script tags each stdout line with one of these; untagged lines
// default to INFO.
var markers = []struct {
	prefix string
	level  Level
}{
	{"[DEBUG]", LevelDebug},
	{"[INFO]", LevelInfo},
	{"[SUCCESS]", LevelSuccess},
	{"[WARNING]", LevelWarning},
	{"[ERROR]", LevelError},
}

// ParseLine extracts the level marker from a raw stdout line.
// It returns the level and the message with the marker stripped.
func ParseLine(line string) (Level, string) {
	trimmed := strings.TrimSpace(line)
	for _, m := range markers {
		if strings.HasPrefix(trimmed, m.prefix) {
			return m.level, strings.TrimSpace(strings.TrimPrefix(trimmed, m.prefix))
		}
	}
	return LevelInfo, trimmed
}

// OutputLine is one leveled message emitted by a run.
type OutputLine struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}
