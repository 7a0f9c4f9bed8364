package disklog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
)

// Writer appends records to a single log. Exactly one Writer exists per
// opened log, enforced by an OS-level advisory lock on the tail file.
//
// A Writer is single-threaded from its caller's perspective: operations
// on one Writer must be serialized by the caller. It holds no internal
// mutex for that reason — adding one would hide misuse rather than
// prevent it.
type Writer struct {
	logFile  *os.File
	tailFile *os.File
	lock     *flock.Flock
	watch    *tailWatch
	tailPos  LogPosition
}

// Append writes contents (read until EOF) as one new record and returns
// the position it was written at (the prior tail). The new record
// becomes observable to readers only once Append returns successfully:
// crashing at any earlier step leaves the log file physically longer
// than the durable tail, which the next OpenLog reports as Recovered
// and the next Append silently overwrites.
func (w *Writer) Append(contents io.Reader) (LogPosition, error) {
	oldTail := w.tailPos

	newTail, err := w.appendItem(contents)
	if err != nil {
		return 0, err
	}

	if err := w.writeTailFile(newTail); err != nil {
		return 0, err
	}

	w.tailPos = newTail
	w.watch.set(newTail)

	return oldTail, nil
}

func (w *Writer) appendItem(contents io.Reader) (LogPosition, error) {
	if _, err := w.logFile.Seek(int64(w.tailPos), io.SeekStart); err != nil {
		return 0, fmt.Errorf("disklog: seek to tail: %w", err)
	}

	// Placeholder header: the payload length isn't known until the
	// streaming copy below finishes, so zero bytes are written here and
	// patched in place afterward.
	var placeholder [recordHeaderSize]byte
	if _, err := w.logFile.Write(placeholder[:]); err != nil {
		return 0, fmt.Errorf("disklog: write placeholder header: %w", err)
	}

	written, err := io.Copy(w.logFile, contents)
	if err != nil {
		return 0, fmt.Errorf("disklog: write record body: %w", err)
	}
	if written > maxItemSize {
		return 0, ErrItemTooLarge
	}
	length := uint32(written)

	if _, err := w.logFile.Seek(int64(w.tailPos), io.SeekStart); err != nil {
		return 0, fmt.Errorf("disklog: seek back to header: %w", err)
	}

	var header [recordHeaderSize]byte
	sum := calculateChecksum(w.tailPos, length)
	header[0] = byte(sum)
	header[1] = byte(sum >> 8)
	header[2] = byte(length)
	header[3] = byte(length >> 8)
	header[4] = byte(length >> 16)
	header[5] = byte(length >> 24)
	if _, err := w.logFile.Write(header[:]); err != nil {
		return 0, fmt.Errorf("disklog: patch record header: %w", err)
	}

	if err := w.logFile.Sync(); err != nil {
		return 0, fmt.Errorf("disklog: flush log file: %w", err)
	}

	return w.tailPos + recordHeaderSize + LogPosition(length), nil
}

func (w *Writer) writeTailFile(newTail LogPosition) error {
	encoded := encodeTailPosition(newTail)
	if _, err := w.tailFile.WriteAt(encoded[:], 0); err != nil {
		return fmt.Errorf("disklog: write tail file: %w", err)
	}
	if err := w.tailFile.Sync(); err != nil {
		return fmt.Errorf("disklog: flush tail file: %w", err)
	}
	return nil
}

// Close releases the writer's file handles and exclusive lock, and
// closes the tail-change watch so readers waiting with
// wait_for_more=true wake up and observe End rather than blocking
// forever.
func (w *Writer) Close() error {
	w.watch.close()

	var errs []error
	if err := w.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("disklog: unlock tail file: %w", err))
	}
	if err := w.tailFile.Close(); err != nil {
		errs = append(errs, fmt.Errorf("disklog: close tail file: %w", err))
	}
	if err := w.logFile.Close(); err != nil {
		errs = append(errs, fmt.Errorf("disklog: close log file: %w", err))
	}
	return errors.Join(errs...)
}
