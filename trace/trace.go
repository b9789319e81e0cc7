// Package trace reads memory-access traces and replays them into a sink.
//
// A trace is line oriented. Each record is an access kind followed by a
// 32-bit hexadecimal address:
//
//	# comment
//	i 0x00400000
//	r 7fff0010
//	w 0x7FFF0018
//
// Kinds are i, f or fetch for instruction fetches, r or read for data reads
// and w or write for data writes, in any case.
package trace

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/hierarchy"
)

// ErrSyntax is wrapped by every error caused by a malformed record.
var ErrSyntax = errors.New("malformed trace record")

// Record is one access of a trace.
type Record struct {
	Kind hierarchy.AccessKind
	Addr uint32
	// Line is the 1-based line the record was read from.
	Line int
}

// ParseRecord parses a single line. It returns false for blank and comment
// lines.
func ParseRecord(line string) (Record, bool, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Record{}, false, nil
	}

	if len(fields) != 2 {
		return Record{}, false, fmt.Errorf(
			"%w: expected <kind> <address>, got %q", ErrSyntax, strings.TrimSpace(line))
	}

	kind, err := ParseKind(fields[0])
	if err != nil {
		return Record{}, false, err
	}

	addr, err := ParseAddress(fields[1])
	if err != nil {
		return Record{}, false, err
	}

	return Record{Kind: kind, Addr: addr}, true, nil
}

// ParseKind maps the kind column of a record to an access kind.
func ParseKind(s string) (hierarchy.AccessKind, error) {
	switch strings.ToLower(s) {
	case "i", "f", "fetch":
		return hierarchy.Fetch, nil
	case "r", "read":
		return hierarchy.Read, nil
	case "w", "write":
		return hierarchy.Write, nil
	default:
		return 0, fmt.Errorf("%w: unknown access kind %q", ErrSyntax, s)
	}
}

// ParseAddress parses a hexadecimal address with or without a 0x prefix.
func ParseAddress(s string) (uint32, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	addr, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad address %q: %w", ErrSyntax, s, err)
	}

	return uint32(addr), nil
}

// Reader streams records from an io.Reader.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	record  Record
	err     error
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next advances to the next record. It returns false at the end of the
// input or on the first error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	for r.scanner.Scan() {
		r.line++

		record, ok, err := ParseRecord(r.scanner.Text())
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.line, err)
			return false
		}

		if ok {
			record.Line = r.line
			r.record = record

			return true
		}
	}

	if err := r.scanner.Err(); err != nil {
		r.err = fmt.Errorf("failed to read trace: %w", err)
	}

	return false
}

// Record returns the record Next advanced to.
func (r *Reader) Record() Record {
	return r.record
}

// Err returns the error that stopped Next, if any.
func (r *Reader) Err() error {
	return r.err
}

// Sink consumes replayed accesses. *hierarchy.Hierarchy is a Sink.
type Sink interface {
	Access(kind hierarchy.AccessKind, addr uint32) error
}

// Replay feeds every record of r into sink and returns the number of records
// replayed. Cancellation is checked between records.
func Replay(ctx context.Context, r io.Reader, sink Sink) (uint64, error) {
	reader := NewReader(r)

	var count uint64
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		record := reader.Record()
		if err := sink.Access(record.Kind, record.Addr); err != nil {
			return count, fmt.Errorf("line %d: %w", record.Line, err)
		}

		count++
	}

	return count, reader.Err()
}
