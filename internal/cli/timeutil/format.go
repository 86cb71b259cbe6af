// Package timeutil formats timestamps for CLI output.
package timeutil

import "time"

// LocalTimeFormat is the layout for timestamps shown to the user, in
// their local zone.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatTime renders an RFC3339 timestamp in the local zone. Values
// that fail to parse are shown as-is rather than hidden.
func FormatTime(timestamp string) string {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}
	return t.Local().Format(LocalTimeFormat)
}
