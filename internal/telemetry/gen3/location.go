package gen3

// SaveBlock1Ptr holds the address of the first save block in work RAM.
const SaveBlock1Ptr = 0x03005D8C

// External work RAM bounds. The save block is always allocated there.
const (
	ewramStart = 0x02000000
	ewramEnd   = 0x02040000
)

const (
	offPlayerX = 0x00
	offPlayerY = 0x02
	offMapBank = 0x04
	offMapNum  = 0x05
)

type Location struct {
	MapBank uint8  `json:"map_bank"`
	MapNum  uint8  `json:"map_num"`
	X       uint16 `json:"x"`
	Y       uint16 `json:"y"`
}

// ReadLocation follows the save block pointer and reads the player position.
// A null pointer (save block not yet allocated) or one outside external work
// RAM reports ok=false.
func ReadLocation(mem Memory) (Location, bool) {
	base := read32(mem, SaveBlock1Ptr)
	if base < ewramStart || base > ewramEnd-offMapNum-1 {
		return Location{}, false
	}
	return Location{
		MapBank: mem.Read8(base + offMapBank),
		MapNum:  mem.Read8(base + offMapNum),
		X:       read16(mem, base+offPlayerX),
		Y:       read16(mem, base+offPlayerY),
	}, true
}
