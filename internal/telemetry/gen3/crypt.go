package gen3

import "encoding/binary"

const (
	// BlockSize is the encrypted data block inside a party entry.
	BlockSize = 48
	// SubstructSize is the size of each of the four substructures.
	SubstructSize = 12
)

// Key is the XOR key for an entry's encrypted block.
func Key(pid, otID uint32) uint32 { return pid ^ otID }

// Crypt XORs every little-endian 32-bit word of block with key, in place.
// Applying it twice restores the input.
func Crypt(block *[BlockSize]byte, key uint32) {
	for i := 0; i < BlockSize; i += 4 {
		w := binary.LittleEndian.Uint32(block[i:])
		binary.LittleEndian.PutUint32(block[i:], w^key)
	}
}

// Substructure identifies a logical 12-byte substructure.
type Substructure int

const (
	Growth Substructure = iota
	Attacks
	EVs
	Misc
)

// substructOrder[pid%24][s] is the physical slot holding logical
// substructure s, in Growth, Attacks, EVs, Misc order.
var substructOrder = [24][4]uint8{
	{0, 1, 2, 3},
	{0, 1, 3, 2},
	{0, 2, 1, 3},
	{0, 3, 1, 2},
	{0, 2, 3, 1},
	{0, 3, 2, 1},
	{1, 0, 2, 3},
	{1, 0, 3, 2},
	{2, 0, 1, 3},
	{3, 0, 1, 2},
	{2, 0, 3, 1},
	{3, 0, 2, 1},
	{1, 2, 0, 3},
	{1, 3, 0, 2},
	{2, 1, 0, 3},
	{3, 1, 0, 2},
	{2, 3, 0, 1},
	{3, 2, 0, 1},
	{1, 2, 3, 0},
	{1, 3, 2, 0},
	{2, 1, 3, 0},
	{3, 1, 2, 0},
	{2, 3, 1, 0},
	{3, 2, 1, 0},
}

// SubstructureOrder returns the slot table row for pid.
func SubstructureOrder(pid uint32) [4]uint8 { return substructOrder[pid%24] }

// SlotOf returns the physical slot that holds s for an entry with pid.
func SlotOf(pid uint32, s Substructure) int { return int(substructOrder[pid%24][s]) }

// Substruct returns the 12 bytes of logical substructure s from a decrypted
// block.
func Substruct(block *[BlockSize]byte, pid uint32, s Substructure) []byte {
	off := SlotOf(pid, s) * SubstructSize
	return block[off : off+SubstructSize]
}
