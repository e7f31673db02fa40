package gen3

import "encoding/binary"

const (
	MaxPartySize = 6
	EntrySize    = 100
	NicknameLen  = 10
)

// Offsets within a party entry. Everything outside the encrypted block is
// stored in the clear.
const (
	offPID       = 0x00
	offOTID      = 0x04
	offNickname  = 0x08
	offEncrypted = 0x20
	offStatus    = 0x50
	offLevel     = 0x54
	offCurHP     = 0x56
	offMaxHP     = 0x58
)

type PartyMember struct {
	Species   uint16    `json:"species"`
	Nickname  string    `json:"nickname"`
	Level     uint8     `json:"level"`
	CurrentHP uint16    `json:"current_hp"`
	MaxHP     uint16    `json:"max_hp"`
	Status    uint32    `json:"status"`
	Moves     [4]uint16 `json:"moves"`
}

func (p PartyMember) Fainted() bool { return p.CurrentHP == 0 }

// ReadParty reads the active party of game from mem. Unknown games and empty
// slots produce no members.
func ReadParty(mem Memory, game Game) []PartyMember {
	countAddr, arrayAddr, ok := game.PartyAddrs()
	if !ok {
		return nil
	}
	count := read32(mem, countAddr)
	if count > MaxPartySize {
		count = MaxPartySize
	}
	out := make([]PartyMember, 0, count)
	for i := uint32(0); i < count; i++ {
		if m, ok := ReadEntry(mem, arrayAddr+i*EntrySize); ok {
			out = append(out, m)
		}
	}
	return out
}

// ReadEntry decodes one 100-byte party entry at base. An entry whose
// personality value and trainer id are both zero is an empty slot.
func ReadEntry(mem Memory, base uint32) (PartyMember, bool) {
	pid := read32(mem, base+offPID)
	otID := read32(mem, base+offOTID)
	if pid == 0 && otID == 0 {
		return PartyMember{}, false
	}

	var nick [NicknameLen]byte
	readBytes(mem, base+offNickname, nick[:])

	var block [BlockSize]byte
	readBytes(mem, base+offEncrypted, block[:])
	Crypt(&block, Key(pid, otID))

	growth := Substruct(&block, pid, Growth)
	attacks := Substruct(&block, pid, Attacks)

	m := PartyMember{
		Species:   binary.LittleEndian.Uint16(growth[0:]),
		Nickname:  DecodeString(nick[:]),
		Level:     mem.Read8(base + offLevel),
		CurrentHP: read16(mem, base+offCurHP),
		MaxHP:     read16(mem, base+offMaxHP),
		Status:    read32(mem, base+offStatus),
	}
	for i := range m.Moves {
		m.Moves[i] = binary.LittleEndian.Uint16(attacks[i*2:])
	}
	return m, true
}
