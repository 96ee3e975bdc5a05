package shared

import (
	"encoding/json"
	"fmt"
)

// FormatDuration renders a millisecond duration as m:ss.
func FormatDuration(durationMS int) string {
	if durationMS < 0 {
		durationMS = 0
	}
	totalSeconds := durationMS / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// MarshalJSON marshals v, optionally indented for human consumption.
func MarshalJSON(v any, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
