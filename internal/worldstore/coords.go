package worldstore

import "encoding/binary"

// coordBias shifts a signed 16-bit-range coordinate into the unsigned
// 16-bit range the packed key can hold; x and y are each restricted to
// a 16-bit unsigned range within one level.
const coordBias = 1 << 15

// packable reports whether a world coordinate fits in the packed
// per-level key space after biasing.
func packable(c WorldCoord) bool {
	return fitsBiased(c.X) && fitsBiased(c.Y)
}

func fitsBiased(v int) bool {
	biased := v + coordBias
	return biased >= 0 && biased <= 0xFFFF
}

// packKey packs a world coordinate into a 32-bit key: high 16 bits
// are the biased X, low 16 bits the biased Y.
func packKey(c WorldCoord) uint32 {
	x := uint32(uint16(c.X + coordBias))
	y := uint32(uint16(c.Y + coordBias))
	return x<<16 | y
}

func unpackKey(k uint32) WorldCoord {
	x := int(uint16(k>>16)) - coordBias
	y := int(uint16(k)) - coordBias
	return WorldCoord{X: x, Y: y}
}

func packKeyBytes(c WorldCoord) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, packKey(c))
	return b
}

func unpackKeyBytes(b []byte) WorldCoord {
	return unpackKey(binary.BigEndian.Uint32(b))
}
