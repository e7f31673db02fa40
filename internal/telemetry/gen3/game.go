// Package gen3 decodes party and location data from the memory of a running
// third-generation handheld title.
package gen3

type Game uint8

const (
	GameUnknown Game = iota
	Emerald
	Ruby
	Sapphire
	FireRed
	LeafGreen
)

func (g Game) String() string {
	switch g {
	case Emerald:
		return "emerald"
	case Ruby:
		return "ruby"
	case Sapphire:
		return "sapphire"
	case FireRed:
		return "firered"
	case LeafGreen:
		return "leafgreen"
	default:
		return "unknown"
	}
}

// DetectGame identifies the title from its 4-character ROM header code. The
// fourth character is the region and is ignored.
func DetectGame(code string) (Game, bool) {
	if len(code) < 3 {
		return GameUnknown, false
	}
	switch code[:3] {
	case "BPE":
		return Emerald, true
	case "AXV":
		return Ruby, true
	case "AXP":
		return Sapphire, true
	case "BPR":
		return FireRed, true
	case "BPG":
		return LeafGreen, true
	}
	return GameUnknown, false
}

// PartyAddrs returns the party count and party array addresses. The count is
// a u32 stored directly before the array.
func (g Game) PartyAddrs() (count, array uint32, ok bool) {
	switch g {
	case Emerald:
		array = 0x020244EC
	case Ruby, Sapphire:
		array = 0x03004360
	case FireRed, LeafGreen:
		array = 0x02024284
	default:
		return 0, 0, false
	}
	return array - 4, array, true
}
