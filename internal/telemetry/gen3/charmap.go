package gen3

import "strings"

// Terminator ends an encoded string.
const Terminator = 0xFF

// charmap is the international (non-Japanese) character set. A zero entry
// means the byte has no printable mapping.
var charmap = [256]rune{
	0x00: 'À', 0x01: 'Á', 0x02: 'Â', 0x03: 'Ç', 0x04: 'È', 0x05: 'É', 0x06: 'Ê', 0x07: 'Ë',
	0x08: 'Ì', 0x0A: 'Î', 0x0B: 'Ï', 0x0C: 'Ò', 0x0D: 'Ó', 0x0E: 'Ô',
	0x10: 'Œ', 0x11: 'Ù', 0x12: 'Ú', 0x13: 'Û', 0x14: 'Ñ', 0x15: 'ß', 0x16: 'à', 0x17: 'á',
	0x18: 'ç', 0x19: 'è', 0x1A: 'é', 0x1B: 'ê', 0x1C: 'ë', 0x1D: 'ì',
	0x20: 'î', 0x21: 'ï', 0x22: 'ò', 0x23: 'ó', 0x24: 'ô', 0x25: 'œ', 0x26: 'ù', 0x27: 'ú',
	0x28: 'û', 0x29: 'ñ', 0x2A: 'º', 0x2B: 'ª', 0x2D: '&', 0x2E: '+',
	0x34: '℃', // "Lv" glyph stand-in
	0x35: '=', 0x36: ';',
	0x46: '¿', 0x47: '¡', 0x4D: 'Í', 0x4E: '%', 0x4F: '(', 0x50: ')',
	0xA1: '0', 0xA2: '1', 0xA3: '2', 0xA4: '3', 0xA5: '4', 0xA6: '5', 0xA7: '6', 0xA8: '7',
	0xA9: '8', 0xAA: '9', 0xAB: '!', 0xAC: '?', 0xAD: '.', 0xAE: '-',
	0xB5: '♂', 0xB6: '♀', 0xB7: '$', 0xB8: ',', 0xB9: '×', 0xBA: '/',
	0xBB: 'A', 0xBC: 'B', 0xBD: 'C', 0xBE: 'D', 0xBF: 'E', 0xC0: 'F', 0xC1: 'G', 0xC2: 'H',
	0xC3: 'I', 0xC4: 'J', 0xC5: 'K', 0xC6: 'L', 0xC7: 'M', 0xC8: 'N', 0xC9: 'O', 0xCA: 'P',
	0xCB: 'Q', 0xCC: 'R', 0xCD: 'S', 0xCE: 'T', 0xCF: 'U', 0xD0: 'V', 0xD1: 'W', 0xD2: 'X',
	0xD3: 'Y', 0xD4: 'Z',
	0xD5: 'a', 0xD6: 'b', 0xD7: 'c', 0xD8: 'd', 0xD9: 'e', 0xDA: 'f', 0xDB: 'g', 0xDC: 'h',
	0xDD: 'i', 0xDE: 'j', 0xDF: 'k', 0xE0: 'l', 0xE1: 'm', 0xE2: 'n', 0xE3: 'o', 0xE4: 'p',
	0xE5: 'q', 0xE6: 'r', 0xE7: 's', 0xE8: 't', 0xE9: 'u', 0xEA: 'v', 0xEB: 'w', 0xEC: 'x',
	0xED: 'y', 0xEE: 'z',
	0xEF: '►', 0xF0: ':', 0xF1: 'Ä', 0xF2: 'Ö', 0xF3: 'Ü', 0xF4: 'ä', 0xF5: 'ö', 0xF6: 'ü',
}

// DecodeChar maps one encoded byte. The terminator and unmapped bytes
// report ok=false.
func DecodeChar(b byte) (rune, bool) {
	r := charmap[b]
	return r, r != 0
}

// DecodeString decodes up to the first terminator, skipping unmapped bytes.
func DecodeString(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c == Terminator {
			break
		}
		if r, ok := DecodeChar(c); ok {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
