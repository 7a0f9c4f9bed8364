package disklog

import "encoding/binary"

// tailFileSize is the fixed size of the "tail" file: three redundant
// little-endian uint64 copies of the tail position.
const tailFileSize = 8 * 3

// parseTailPosition recovers the tail position from the three redundant
// copies. Updates are written in order a -> b -> c, so at most one slot
// can be mid-update after a crash; any two adjacent equal values are
// the last fully-committed tail. It returns ok=false if no two adjacent
// slots agree (even when the first and last do), which the caller
// reports as CorruptTailPosition.
func parseTailPosition(b [tailFileSize]byte) (pos LogPosition, ok bool) {
	a := binary.LittleEndian.Uint64(b[0:8])
	c := binary.LittleEndian.Uint64(b[8:16])
	d := binary.LittleEndian.Uint64(b[16:24])

	switch {
	case a == c:
		return a, true
	case c == d:
		return c, true
	default:
		return 0, false
	}
}

// encodeTailPosition writes three little-endian copies of pos, the
// on-disk layout written by a fresh tail file and by every tail update.
func encodeTailPosition(pos LogPosition) [tailFileSize]byte {
	var b [tailFileSize]byte
	binary.LittleEndian.PutUint64(b[0:8], pos)
	binary.LittleEndian.PutUint64(b[8:16], pos)
	binary.LittleEndian.PutUint64(b[16:24], pos)
	return b
}
