package gen3

import "encoding/binary"

var reverseCharmap = func() map[rune]byte {
	m := make(map[rune]byte, 256)
	for b, r := range charmap {
		if r != 0 {
			if _, dup := m[r]; !dup {
				m[r] = byte(b)
			}
		}
	}
	return m
}()

// EncodeString encodes s into a fixed window of n bytes, padded with the
// terminator. Characters without an encoding are dropped.
func EncodeString(s string, n int) []byte {
	out := make([]byte, 0, n)
	for _, r := range s {
		if len(out) == n {
			break
		}
		if b, ok := reverseCharmap[r]; ok {
			out = append(out, b)
		}
	}
	for len(out) < n {
		out = append(out, Terminator)
	}
	return out
}

// Writer is byte-addressable writable memory.
type Writer interface {
	Write8(addr uint32, v uint8)
}

// WriteEntry stores m as an encrypted party entry at base, the inverse of
// ReadEntry. pid and otID must not both be zero.
func WriteEntry(w Writer, base, pid, otID uint32, m PartyMember) {
	put32(w, base+offPID, pid)
	put32(w, base+offOTID, otID)
	putBytes(w, base+offNickname, EncodeString(m.Nickname, NicknameLen))

	var block [BlockSize]byte
	g := SlotOf(pid, Growth) * SubstructSize
	binary.LittleEndian.PutUint16(block[g:], m.Species)
	a := SlotOf(pid, Attacks) * SubstructSize
	for i, mv := range m.Moves {
		binary.LittleEndian.PutUint16(block[a+2*i:], mv)
	}
	Crypt(&block, Key(pid, otID))
	putBytes(w, base+offEncrypted, block[:])

	put32(w, base+offStatus, m.Status)
	w.Write8(base+offLevel, m.Level)
	put16(w, base+offCurHP, m.CurrentHP)
	put16(w, base+offMaxHP, m.MaxHP)
}

// WriteLocation stores loc in the save block at base and points the save
// block pointer at it.
func WriteLocation(w Writer, base uint32, loc Location) {
	put32(w, SaveBlock1Ptr, base)
	put16(w, base+offPlayerX, loc.X)
	put16(w, base+offPlayerY, loc.Y)
	w.Write8(base+offMapBank, loc.MapBank)
	w.Write8(base+offMapNum, loc.MapNum)
}

func put16(w Writer, addr uint32, v uint16) {
	w.Write8(addr, uint8(v))
	w.Write8(addr+1, uint8(v>>8))
}

func put32(w Writer, addr uint32, v uint32) {
	for i := uint32(0); i < 4; i++ {
		w.Write8(addr+i, uint8(v>>(8*i)))
	}
}

func putBytes(w Writer, addr uint32, b []byte) {
	for i, v := range b {
		w.Write8(addr+uint32(i), v)
	}
}
