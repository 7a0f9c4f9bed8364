package disklog

import "encoding/binary"

// checksum is a 16-bit integrity tag for a (position, length) pair.
// It is intentionally weak: an alignment sanity check, not a
// content-authenticating MAC. It catches a reader resuming at a
// non-record offset and a truncated mid-record write, because the
// payload length read back will disagree with the remaining bytes.
// Do not widen its role without widening the on-disk format.
type checksum = uint16

// calculateChecksum XORs the four little-endian 16-bit halves of
// position with the two little-endian 16-bit halves of length. It is
// deterministic and total; it never fails.
func calculateChecksum(position LogPosition, length uint32) checksum {
	var posBytes [8]byte
	binary.LittleEndian.PutUint64(posBytes[:], position)

	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], length)

	return binary.LittleEndian.Uint16(posBytes[0:2]) ^
		binary.LittleEndian.Uint16(posBytes[2:4]) ^
		binary.LittleEndian.Uint16(posBytes[4:6]) ^
		binary.LittleEndian.Uint16(posBytes[6:8]) ^
		binary.LittleEndian.Uint16(lenBytes[0:2]) ^
		binary.LittleEndian.Uint16(lenBytes[2:4])
}
