package cache

import "fmt"

// snapshotVersion is bumped whenever the encoded snapshot layout changes.
const snapshotVersion = 1

// TimetableKey holds the JSON encoded list of all flights.
// timetable:snapshot:v{version}
func TimetableKey() string {
	return fmt.Sprintf("timetable:snapshot:v%d", snapshotVersion)
}

// TimetableKeys lists every key derived from the timetable, for invalidation.
func TimetableKeys() []string {
	return []string{TimetableKey()}
}
