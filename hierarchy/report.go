package hierarchy

import "github.com/sarchlab/cachesim/cache"

// LevelStats holds the statistics of one level.
type LevelStats struct {
	Name string `json:"name"`
	cache.Statistics
	// WriteBacks counts dirty lines stored into the next level.
	WriteBacks uint64 `json:"write_backs"`
	// WriteThroughs counts writes forwarded to the next level.
	WriteThroughs uint64 `json:"write_throughs"`
	// Dropped counts dirty lines that left the last level.
	Dropped uint64 `json:"dropped"`
}

// Report is the result of a trace-processing session.
type Report struct {
	Levels        []LevelStats `json:"levels"`
	TotalAccesses uint64       `json:"total_accesses"`
}

// Level returns the statistics of the named level.
func (r Report) Level(name string) (LevelStats, bool) {
	for _, l := range r.Levels {
		if l.Name == name {
			return l, true
		}
	}

	return LevelStats{}, false
}
