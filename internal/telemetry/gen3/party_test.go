package gen3

import (
	"encoding/binary"
	"encoding/json"
	"reflect"
	"testing"
)

type entryFixture struct {
	pid, otID uint32
	nickname  []byte
	species   uint16
	moves     [4]uint16
	level     uint8
	curHP     uint16
	maxHP     uint16
	status    uint32
}

// writeEntry lays out and encrypts an entry the way the game stores it.
func writeEntry(mem SparseMemory, base uint32, e entryFixture) {
	mem.Write32(base+offPID, e.pid)
	mem.Write32(base+offOTID, e.otID)
	nick := make([]byte, NicknameLen)
	for i := range nick {
		nick[i] = Terminator
	}
	copy(nick, e.nickname)
	mem.WriteBytes(base+offNickname, nick)

	var block [BlockSize]byte
	g := SlotOf(e.pid, Growth) * SubstructSize
	binary.LittleEndian.PutUint16(block[g:], e.species)
	a := SlotOf(e.pid, Attacks) * SubstructSize
	for i, mv := range e.moves {
		binary.LittleEndian.PutUint16(block[a+2*i:], mv)
	}
	// Noise in the other substructures must not leak into decoded fields.
	for _, s := range []Substructure{EVs, Misc} {
		off := SlotOf(e.pid, s) * SubstructSize
		for i := 0; i < SubstructSize; i++ {
			block[off+i] = 0x5A
		}
	}
	Crypt(&block, Key(e.pid, e.otID))
	mem.WriteBytes(base+offEncrypted, block[:])

	mem.Write32(base+offStatus, e.status)
	mem.Write8(base+offLevel, e.level)
	mem.Write16(base+offCurHP, e.curHP)
	mem.Write16(base+offMaxHP, e.maxHP)
}

func TestReadEntry_AllPermutations(t *testing.T) {
	for r := uint32(0); r < 24; r++ {
		mem := SparseMemory{}
		pid := 0x1000*24 + r
		e := entryFixture{
			pid: pid, otID: 0xCAFEBABE,
			nickname: []byte{0xCD, 0xE5, 0xE9, 0xDD, 0xE6, 0xE8, 0xE0, 0xD9}, // Squirtle
			species:  7, moves: [4]uint16{33, 39, 145, 0},
			level: 12, curHP: 30, maxHP: 34, status: 0x08,
		}
		writeEntry(mem, 0x02000000, e)

		got, ok := ReadEntry(mem, 0x02000000)
		if !ok {
			t.Fatalf("pid%%24=%d: entry reported empty", r)
		}
		want := PartyMember{
			Species: 7, Nickname: "Squirtle", Level: 12, CurrentHP: 30, MaxHP: 34,
			Status: 0x08, Moves: [4]uint16{33, 39, 145, 0},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("pid%%24=%d: got %+v want %+v", r, got, want)
		}
	}
}

func TestReadParty_SkipsEmptyAndClampsCount(t *testing.T) {
	mem := SparseMemory{}
	countAddr, arrayAddr, ok := Emerald.PartyAddrs()
	if !ok {
		t.Fatalf("no party addrs for emerald")
	}
	mem.Write32(countAddr, 200)
	writeEntry(mem, arrayAddr, entryFixture{pid: 1, otID: 2, species: 252, level: 5, curHP: 20, maxHP: 20})
	// slot 1 left empty
	writeEntry(mem, arrayAddr+2*EntrySize, entryFixture{pid: 77, otID: 0, species: 263, level: 3, maxHP: 11})
	writeEntry(mem, arrayAddr+6*EntrySize, entryFixture{pid: 5, otID: 5, species: 1})

	party := ReadParty(mem, Emerald)
	if len(party) != 2 {
		t.Fatalf("party len=%d want 2: %+v", len(party), party)
	}
	if party[0].Species != 252 || party[1].Species != 263 {
		t.Fatalf("species = %d,%d", party[0].Species, party[1].Species)
	}
	if !party[1].Fainted() {
		t.Fatalf("zero HP member not reported fainted")
	}
}

func TestReadParty_UnknownGame(t *testing.T) {
	if got := ReadParty(SparseMemory{}, GameUnknown); got != nil {
		t.Fatalf("got %+v for unknown game", got)
	}
}

func TestPartyMember_JSON(t *testing.T) {
	b, err := json.Marshal(PartyMember{Species: 25, Nickname: "Pika", Moves: [4]uint16{1, 2, 3, 4}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"species", "nickname", "level", "current_hp", "max_hp", "status", "moves"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}
}
