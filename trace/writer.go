package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sarchlab/cachesim/hierarchy"
)

// KindLetter returns the single-letter column used for kind in a trace.
func KindLetter(kind hierarchy.AccessKind) (byte, error) {
	switch kind {
	case hierarchy.Fetch:
		return 'i', nil
	case hierarchy.Read:
		return 'r', nil
	case hierarchy.Write:
		return 'w', nil
	default:
		return 0, fmt.Errorf("%w: %v", hierarchy.ErrUnknownAccess, kind)
	}
}

// Writer encodes accesses as trace records. It is a Sink, so a replay can be
// captured into a new trace. Call Flush when done.
type Writer struct {
	w     *bufio.Writer
	count uint64
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Access writes one record.
func (w *Writer) Access(kind hierarchy.AccessKind, addr uint32) error {
	letter, err := KindLetter(kind)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w.w, "%c 0x%08x\n", letter, addr); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	w.count++

	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	return w.count
}

// Flush writes any buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	return nil
}
