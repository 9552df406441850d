package reminder

import "time"

// MatchesWindow reports whether a habit's configured reminder moment and
// the current instant fall in the same minute of the day, both read in
// UTC. The date components of either instant are ignored entirely: a
// reminder stored with any calendar date at 08:30 UTC fires every day at
// 08:30 UTC.
//
// Clients are expected to convert the user's intended local wall time to
// UTC before storing; comparing stored local strings against a UTC clock
// was the latent drift bug this replaces.
func MatchesWindow(reminderTime, now time.Time) bool {
	r := reminderTime.UTC()
	n := now.UTC()
	return r.Hour() == n.Hour() && r.Minute() == n.Minute()
}
