// Package report renders and records the statistics of a cache hierarchy
// session.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sarchlab/cachesim/hierarchy"
)

var levelTitles = map[string]string{
	hierarchy.L1Instruction.String(): "level one instruction cache",
	hierarchy.L1Data.String():        "level one data cache",
	hierarchy.L2.String():            "level two cache",
}

// WriteText prints the executed access count followed by one hit-rate line
// per level.
func WriteText(w io.Writer, r hierarchy.Report) error {
	if _, err := fmt.Fprintf(w, "Executed %d instructions.\n\n", r.TotalAccesses); err != nil {
		return err
	}

	for _, level := range r.Levels {
		title, ok := levelTitles[level.Name]
		if !ok {
			title = level.Name
		}

		_, err := fmt.Fprintf(w, "Hitrate %s: %d of %d instructions; %f%%\n",
			title, level.Hits, level.Accesses(), 100*level.HitRate())
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteDetails prints the replacement and propagation counters of every
// level.
func WriteDetails(w io.Writer, r hierarchy.Report) error {
	for _, level := range r.Levels {
		_, err := fmt.Fprintf(w,
			"  %-4s evictions: %d (dirty %d), write-backs: %d, write-throughs: %d, dropped: %d\n",
			level.Name, level.Evictions, level.DirtyEvictions,
			level.WriteBacks, level.WriteThroughs, level.Dropped)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r hierarchy.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return nil
}
