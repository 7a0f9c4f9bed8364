package disklog

import "errors"

// Errors returned by OpenLog. Fatal to the open attempt.
var (
	// ErrCorruptTailPosition means the tail file is neither empty, nor
	// exactly 24 bytes with two adjacent slots agreeing.
	ErrCorruptTailPosition = errors.New("disklog: corrupt tail position")

	// ErrLogTooSmall means the log file's physical length is shorter
	// than the tail it is supposed to contain.
	ErrLogTooSmall = errors.New("disklog: log file too small for recorded tail")

	// ErrAlreadyOpen means another writer handle already holds the
	// exclusive lock on this log directory.
	ErrAlreadyOpen = errors.New("disklog: log already open for writing")
)

// ErrItemTooLarge is returned by Writer.Append when a payload exceeds
// 2^32-1 bytes. The writer remains usable after this error.
var ErrItemTooLarge = errors.New("disklog: item too large")

// ErrInvalidItemChecksum is returned by Reader.Next when the bytes at
// the reader's cursor do not form a valid record header. The reader's
// cursor is considered poisoned; other readers are unaffected.
var ErrInvalidItemChecksum = errors.New("disklog: invalid item checksum")
