package disklog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// OpenedLog is returned by OpenLog: a writer, a factory for independent
// readers, and whether a prior crash's partial write was detected and
// logically ignored.
type OpenedLog struct {
	Writer        *Writer
	ReaderFactory *ReaderFactory
	Recovered     bool
}

const logFileName = "log"
const tailFileName = "tail"

// OpenLog opens (creating if necessary) the log directory at path.
// Only one writer handle may exist for a given directory at a time;
// a second concurrent OpenLog fails with ErrAlreadyOpen.
func OpenLog(path string) (*OpenedLog, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("disklog: create directory: %w", err)
	}

	tailFile, tailPos, lock, err := openTailFile(path)
	if err != nil {
		return nil, err
	}

	logFile, recovered, err := openLogFile(path, tailPos)
	if err != nil {
		_ = lock.Unlock()
		_ = tailFile.Close()
		return nil, err
	}

	watch := newTailWatch(tailPos)

	writer := &Writer{
		logFile:  logFile,
		tailFile: tailFile,
		lock:     lock,
		watch:    watch,
		tailPos:  tailPos,
	}

	factory := &ReaderFactory{
		logPath: filepath.Join(path, logFileName),
		watch:   watch,
	}

	return &OpenedLog{Writer: writer, ReaderFactory: factory, Recovered: recovered}, nil
}

// openTailFile opens path/tail for read-write, acquiring the exclusive
// single-writer lock, and returns the recovered tail position. A fresh
// (empty) file is initialized with three zero copies.
func openTailFile(path string) (*os.File, LogPosition, *flock.Flock, error) {
	tailPath := filepath.Join(path, tailFileName)

	lock := flock.New(tailPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("disklog: lock tail file: %w", err)
	}
	if !locked {
		return nil, 0, nil, ErrAlreadyOpen
	}

	tailFile, err := os.OpenFile(tailPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, 0, nil, fmt.Errorf("disklog: open tail file: %w", err)
	}

	contents, err := io.ReadAll(tailFile)
	if err != nil {
		_ = lock.Unlock()
		_ = tailFile.Close()
		return nil, 0, nil, fmt.Errorf("disklog: read tail file: %w", err)
	}

	var pos LogPosition
	switch len(contents) {
	case 0:
		if _, err := tailFile.WriteAt(encodeTailPosition(0)[:], 0); err != nil {
			_ = lock.Unlock()
			_ = tailFile.Close()
			return nil, 0, nil, fmt.Errorf("disklog: initialize tail file: %w", err)
		}
		if err := tailFile.Sync(); err != nil {
			_ = lock.Unlock()
			_ = tailFile.Close()
			return nil, 0, nil, fmt.Errorf("disklog: sync tail file: %w", err)
		}
		pos = 0
	case tailFileSize:
		var b [tailFileSize]byte
		copy(b[:], contents)
		parsed, ok := parseTailPosition(b)
		if !ok {
			_ = lock.Unlock()
			_ = tailFile.Close()
			return nil, 0, nil, ErrCorruptTailPosition
		}
		pos = parsed
	default:
		_ = lock.Unlock()
		_ = tailFile.Close()
		return nil, 0, nil, ErrCorruptTailPosition
	}

	return tailFile, pos, lock, nil
}

// openLogFile opens path/log for read-write and measures its physical
// length against the expected tail. A physically longer file means a
// prior crash left a partial trailing record; it is not truncated, only
// reported via the returned recovered flag, since the next successful
// append will overwrite it starting at expectedTail.
func openLogFile(path string, expectedTail LogPosition) (*os.File, bool, error) {
	logPath := filepath.Join(path, logFileName)

	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("disklog: open log file: %w", err)
	}

	actualTail, err := logFile.Seek(0, io.SeekEnd)
	if err != nil {
		_ = logFile.Close()
		return nil, false, fmt.Errorf("disklog: seek log file: %w", err)
	}

	if uint64(actualTail) < expectedTail {
		_ = logFile.Close()
		return nil, false, ErrLogTooSmall
	}

	return logFile, uint64(actualTail) > expectedTail, nil
}

// Close releases the writer's exclusive lock and closes both files. It
// also closes the tail-change watch, which unblocks any reader waiting
// with wait_for_more=true: they observe End, not an error (§5, §8
// property 7).
func (l *OpenedLog) Close() error {
	return l.Writer.Close()
}
