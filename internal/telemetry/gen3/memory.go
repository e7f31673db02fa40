package gen3

// Memory is random byte access into the console address space.
type Memory interface {
	Read8(addr uint32) uint8
}

func read16(m Memory, addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

func read32(m Memory, addr uint32) uint32 {
	return uint32(m.Read8(addr)) |
		uint32(m.Read8(addr+1))<<8 |
		uint32(m.Read8(addr+2))<<16 |
		uint32(m.Read8(addr+3))<<24
}

func readBytes(m Memory, addr uint32, buf []byte) {
	for i := range buf {
		buf[i] = m.Read8(addr + uint32(i))
	}
}

// SparseMemory is a map-backed Memory; unset addresses read as zero.
type SparseMemory map[uint32]uint8

func (s SparseMemory) Read8(addr uint32) uint8 { return s[addr] }

func (s SparseMemory) Write8(addr uint32, v uint8) { s[addr] = v }

func (s SparseMemory) Write16(addr uint32, v uint16) {
	s[addr] = uint8(v)
	s[addr+1] = uint8(v >> 8)
}

func (s SparseMemory) Write32(addr uint32, v uint32) {
	for i := uint32(0); i < 4; i++ {
		s[addr+i] = uint8(v >> (8 * i))
	}
}

func (s SparseMemory) WriteBytes(addr uint32, b []byte) {
	for i, v := range b {
		s[addr+uint32(i)] = v
	}
}
