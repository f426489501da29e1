package supervisor

import "strings"

// ReadinessPredicate inspects recently captured log lines and reports
// whether they indicate the child has finished starting. Isolated behind
// this type so an alternative signal (a health port, a bridge-plugin IPC
// message) can be substituted without touching the scanner loop.
type ReadinessPredicate func(recentLines []string) bool

// readyMarkers are the literal substrings the default predicate looks for.
var readyMarkers = []string{"Server started", "Done", "Ready", "Listening on"}

// DefaultReadinessPredicate reports true on the first line containing any
// of readyMarkers.
func DefaultReadinessPredicate(recentLines []string) bool {
	for _, line := range recentLines {
		for _, marker := range readyMarkers {
			if strings.Contains(line, marker) {
				return true
			}
		}
	}
	return false
}
