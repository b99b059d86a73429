package rv32

import "fmt"

// LoadExtract post-processes a raw 32-bit memory word for a load.
// addrLow is the low 2 bits of the byte address; byte lanes are
// little-endian, so lane 0 is bits [7:0] and lane 3 is bits [31:24].
// Half-word selection uses only bit 1 of the address. An unrecognised
// funct3 or lane selector is a decode fault, never a guessed value.
func LoadExtract(word, addrLow, funct3 uint32) (uint32, error) {
	if addrLow > 3 {
		return 0, fmt.Errorf("%w: load lane select %#x", ErrDecodeFault, addrLow)
	}
	switch funct3 {
	case F3LW:
		return word, nil
	case F3LH:
		half := (word >> (16 * (addrLow >> 1))) & 0xFFFF
		return uint32(int32(int16(half))), nil
	case F3LHU:
		return (word >> (16 * (addrLow >> 1))) & 0xFFFF, nil
	case F3LB:
		b := (word >> (8 * addrLow)) & 0xFF
		return uint32(int32(int8(b))), nil
	case F3LBU:
		return (word >> (8 * addrLow)) & 0xFF, nil
	}
	return 0, fmt.Errorf("%w: load funct3 %#x", ErrDecodeFault, funct3)
}

// StoreMerge folds store data into a previously read memory word and
// returns the merged word together with the byte write-enable strobe
// for the lanes the store touches.
func StoreMerge(old, src, addrLow, funct3 uint32) (uint32, uint8, error) {
	if addrLow > 3 {
		return 0, 0, fmt.Errorf("%w: store lane select %#x", ErrDecodeFault, addrLow)
	}
	switch funct3 {
	case F3SW:
		return src, 0xF, nil
	case F3SH:
		shift := 16 * (addrLow >> 1)
		mask := uint32(0xFFFF) << shift
		word := (old &^ mask) | ((src & 0xFFFF) << shift)
		return word, uint8(0x3 << (2 * (addrLow >> 1))), nil
	case F3SB:
		shift := 8 * addrLow
		mask := uint32(0xFF) << shift
		word := (old &^ mask) | ((src & 0xFF) << shift)
		return word, uint8(1 << addrLow), nil
	}
	return 0, 0, fmt.Errorf("%w: store funct3 %#x", ErrDecodeFault, funct3)
}
