package domain

import "sort"

// Team tracks one team's run through the hunt. Progress is the level the
// team must attempt next; LevelCount+1 means the team has finished.
// Timestamps are unix milliseconds to match the wire format.
type Team struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Progress          int           `json:"progress"`
	TotalTimeMs       int64         `json:"total_time_ms"`
	CurrentLevelStart *int64        `json:"currentLevelStart"`
	LevelTimes        map[int]int64 `json:"level_times"`
	LockUntil         *int64        `json:"lockUntil"`

	// Version guards read-modify-write cycles; managed by the team store.
	Version int64 `json:"-"`
}

// Question is the static content behind one level. Answer never leaves
// the server.
type Question struct {
	Level   int      `json:"level"`
	Text    string   `json:"question"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer"`
}

// Attempt is an append-only audit record of one answer submission.
// TimeTakenMs is nil when the submission had no running level timer.
type Attempt struct {
	TeamID      string `json:"teamId"`
	Level       int    `json:"level"`
	Answer      string `json:"answer"`
	Correct     bool   `json:"correct"`
	TimeTakenMs *int64 `json:"timeTaken"`
	TS          int64  `json:"ts"`
}

// LeaderboardEntry is the derived, client-facing view of a team.
type LeaderboardEntry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Progress    int           `json:"progress"`
	TotalTimeMs int64         `json:"total_time_ms"`
	LevelTimes  map[int]int64 `json:"level_times"`
}

// Rank orders teams by progress (further along first), then by total
// elapsed time (faster first). The sort is stable: teams tied on both
// keys keep their input order, so repeated calls over unchanged input
// return identical results.
func Rank(teams []Team) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(teams))
	for _, t := range teams {
		times := t.LevelTimes
		if times == nil {
			times = map[int]int64{}
		}
		entries = append(entries, LeaderboardEntry{
			ID:          t.ID,
			Name:        t.Name,
			Progress:    t.Progress,
			TotalTimeMs: t.TotalTimeMs,
			LevelTimes:  times,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Progress != entries[j].Progress {
			return entries[i].Progress > entries[j].Progress
		}
		return entries[i].TotalTimeMs < entries[j].TotalTimeMs
	})
	return entries
}
