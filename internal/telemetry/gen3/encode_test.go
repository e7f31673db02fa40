package gen3

import (
	"bytes"
	"testing"
)

func TestEncodeString_RoundTrip(t *testing.T) {
	enc := EncodeString("Mudkip", NicknameLen)
	if len(enc) != NicknameLen {
		t.Fatalf("len=%d", len(enc))
	}
	if !bytes.Equal(enc[6:], []byte{Terminator, Terminator, Terminator, Terminator}) {
		t.Fatalf("padding = % x", enc[6:])
	}
	if got := DecodeString(enc); got != "Mudkip" {
		t.Fatalf("round trip = %q", got)
	}
	if got := DecodeString(EncodeString("ABCDEFGHIJKLMNOP", NicknameLen)); got != "ABCDEFGHIJ" {
		t.Fatalf("truncation = %q", got)
	}
}

func TestWriteEntry_ReadBack(t *testing.T) {
	mem := SparseMemory{}
	countAddr, arrayAddr, _ := FireRed.PartyAddrs()
	want := []PartyMember{
		{Species: 4, Nickname: "Charmander", Level: 9, CurrentHP: 25, MaxHP: 27, Moves: [4]uint16{10, 45, 52, 0}},
		{Species: 16, Nickname: "Pidgey", Level: 4, CurrentHP: 0, MaxHP: 15, Status: 0x40, Moves: [4]uint16{33}},
	}
	mem.Write32(countAddr, uint32(len(want)))
	for i, m := range want {
		WriteEntry(mem, arrayAddr+uint32(i)*EntrySize, uint32(1000+i*7), 0x00BEEF00, m)
	}
	got := ReadParty(mem, FireRed)
	if len(got) != len(want) {
		t.Fatalf("len=%d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("member %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestWriteLocation_ReadBack(t *testing.T) {
	mem := SparseMemory{}
	want := Location{MapBank: 1, MapNum: 4, X: 300, Y: 12}
	WriteLocation(mem, 0x02025000, want)
	got, ok := ReadLocation(mem)
	if !ok || got != want {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}
