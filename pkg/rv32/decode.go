package rv32

// RV32I base opcodes (bits [6:0] of the instruction word).
const (
	OpLUI    uint32 = 0x37
	OpAUIPC  uint32 = 0x17
	OpJAL    uint32 = 0x6F
	OpJALR   uint32 = 0x67
	OpBranch uint32 = 0x63
	OpLoad   uint32 = 0x03
	OpStore  uint32 = 0x23
	OpOpImm  uint32 = 0x13
	OpOp     uint32 = 0x33
)

// Load/store funct3 values.
const (
	F3LB  uint32 = 0x0
	F3LH  uint32 = 0x1
	F3LW  uint32 = 0x2
	F3LBU uint32 = 0x4
	F3LHU uint32 = 0x5

	F3SB uint32 = 0x0
	F3SH uint32 = 0x1
	F3SW uint32 = 0x2
)

// Branch funct3 values.
const (
	F3BEQ  uint32 = 0x0
	F3BNE  uint32 = 0x1
	F3BLT  uint32 = 0x4
	F3BGE  uint32 = 0x5
	F3BLTU uint32 = 0x6
	F3BGEU uint32 = 0x7
)

// Instruction holds the decoded fields of one instruction word.
// It is latched into the IR during fetch and is immutable afterwards.
type Instruction struct {
	Raw    uint32
	Opcode uint32
	Rd     uint32
	Rs1    uint32
	Rs2    uint32
	Funct3 uint32
	Funct7 uint32
	Imm    int32 // sign-extended per instruction format
}

// Decode extracts all instruction fields and the format-specific
// immediate from a raw 32-bit word.
func Decode(raw uint32) Instruction {
	in := Instruction{
		Raw:    raw,
		Opcode: raw & 0x7F,
		Rd:     (raw >> 7) & 0x1F,
		Funct3: (raw >> 12) & 0x7,
		Rs1:    (raw >> 15) & 0x1F,
		Rs2:    (raw >> 20) & 0x1F,
		Funct7: (raw >> 25) & 0x7F,
	}
	in.Imm = immediate(raw, in.Opcode)
	return in
}

// immediate rebuilds the sign-extended immediate for the format the
// opcode selects. Opcodes with no immediate (R-type) yield 0.
func immediate(raw, opcode uint32) int32 {
	switch opcode {
	case OpOpImm, OpLoad, OpJALR:
		// I-type: bits [31:20]
		return int32(raw) >> 20
	case OpStore:
		// S-type: bits [31:25] ++ [11:7]
		imm := (int32(raw) >> 20) &^ 0x1F
		imm |= int32((raw >> 7) & 0x1F)
		return imm
	case OpBranch:
		// B-type: [31] ++ [7] ++ [30:25] ++ [11:8] ++ 0
		imm := (int32(raw) >> 19) &^ 0xFFF       // bit 31 -> imm[12], sign-extended
		imm |= int32((raw>>7)&0x1) << 11         // bit 7  -> imm[11]
		imm |= int32((raw>>25)&0x3F) << 5        // bits 30:25 -> imm[10:5]
		imm |= int32((raw>>8)&0xF) << 1          // bits 11:8 -> imm[4:1]
		return imm
	case OpLUI, OpAUIPC:
		// U-type: bits [31:12] already in place
		return int32(raw & 0xFFFFF000)
	case OpJAL:
		// J-type: [31] ++ [19:12] ++ [20] ++ [30:21] ++ 0
		imm := (int32(raw) >> 11) &^ 0xFFFFF // bit 31 -> imm[20], sign-extended
		imm |= int32(raw & 0xFF000)          // bits 19:12 -> imm[19:12]
		imm |= int32((raw>>20)&0x1) << 11    // bit 20 -> imm[11]
		imm |= int32((raw>>21)&0x3FF) << 1   // bits 30:21 -> imm[10:1]
		return imm
	}
	return 0
}
