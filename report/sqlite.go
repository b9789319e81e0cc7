package report

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/hierarchy"
)

const createStatsTable = `
CREATE TABLE IF NOT EXISTS cache_stats (
	run_id          TEXT NOT NULL,
	trace           TEXT NOT NULL,
	level           TEXT NOT NULL,
	hits            INTEGER NOT NULL,
	misses          INTEGER NOT NULL,
	evictions       INTEGER NOT NULL,
	dirty_evictions INTEGER NOT NULL,
	write_backs     INTEGER NOT NULL,
	write_throughs  INTEGER NOT NULL,
	dropped         INTEGER NOT NULL,
	total_accesses  INTEGER NOT NULL
)`

const insertStats = `
INSERT INTO cache_stats (
	run_id, trace, level, hits, misses, evictions, dirty_evictions,
	write_backs, write_throughs, dropped, total_accesses
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type row struct {
	trace         string
	level         hierarchy.LevelStats
	totalAccesses uint64
}

// SQLiteRecorder stores reports in a SQLite database, one row per level.
// Rows are buffered and written in a single transaction on Flush, which also
// runs at exit.
type SQLiteRecorder struct {
	db        *sql.DB
	statement *sql.Stmt

	path    string
	runID   string
	pending []row
}

// NewSQLiteRecorder opens (or creates) the database at path. An empty path
// names a fresh file after the run ID.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	runID := xid.New().String()
	if path == "" {
		path = "cachesim_" + runID + ".sqlite3"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := db.Exec(createStatsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create stats table: %w", err)
	}

	statement, err := db.Prepare(insertStats)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare stats insert: %w", err)
	}

	r := &SQLiteRecorder{
		db:        db,
		statement: statement,
		path:      path,
		runID:     runID,
	}

	atexit.Register(func() {
		if err := r.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "cachesim: %v\n", err)
		}
	})

	return r, nil
}

// Path returns the database file.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// RunID returns the identifier shared by every row of this recorder.
func (r *SQLiteRecorder) RunID() string {
	return r.runID
}

// Record buffers the levels of report under the trace name.
func (r *SQLiteRecorder) Record(trace string, report hierarchy.Report) {
	for _, level := range report.Levels {
		r.pending = append(r.pending, row{
			trace:         trace,
			level:         level,
			totalAccesses: report.TotalAccesses,
		})
	}
}

// Flush writes all buffered rows.
func (r *SQLiteRecorder) Flush() error {
	if len(r.pending) == 0 || r.db == nil {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	statement := tx.Stmt(r.statement)
	for _, p := range r.pending {
		_, err := statement.Exec(
			r.runID,
			p.trace,
			p.level.Name,
			p.level.Hits,
			p.level.Misses,
			p.level.Evictions,
			p.level.DirtyEvictions,
			p.level.WriteBacks,
			p.level.WriteThroughs,
			p.level.Dropped,
			p.totalAccesses,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert stats of %s: %w", p.trace, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stats: %w", err)
	}

	r.pending = nil

	return nil
}

// Close flushes pending rows and closes the database.
func (r *SQLiteRecorder) Close() error {
	if r.db == nil {
		return nil
	}

	flushErr := r.Flush()

	_ = r.statement.Close()
	closeErr := r.db.Close()
	r.db = nil

	if flushErr != nil {
		return flushErr
	}

	return closeErr
}
