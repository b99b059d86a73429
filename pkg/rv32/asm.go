package rv32

// Instruction encoders. These are the inverse of Decode and exist for
// tests and host tooling that need to assemble small images without an
// external toolchain.

// EncodeR packs an R-type instruction.
func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return opcode&0x7F | (rd&0x1F)<<7 | (funct3&0x7)<<12 |
		(rs1&0x1F)<<15 | (rs2&0x1F)<<20 | (funct7&0x7F)<<25
}

// EncodeI packs an I-type instruction with a 12-bit immediate.
func EncodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return opcode&0x7F | (rd&0x1F)<<7 | (funct3&0x7)<<12 |
		(rs1&0x1F)<<15 | uint32(imm&0xFFF)<<20
}

// EncodeS packs an S-type instruction.
func EncodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm & 0xFFF)
	return opcode&0x7F | (u&0x1F)<<7 | (funct3&0x7)<<12 |
		(rs1&0x1F)<<15 | (rs2&0x1F)<<20 | (u>>5)<<25
}

// EncodeB packs a B-type instruction; imm is the byte offset.
func EncodeB(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcode&0x7F |
		(u>>11&0x1)<<7 | (u>>1&0xF)<<8 | (funct3&0x7)<<12 |
		(rs1&0x1F)<<15 | (rs2&0x1F)<<20 |
		(u>>5&0x3F)<<25 | (u>>12&0x1)<<31
}

// EncodeU packs a U-type instruction; imm supplies bits [31:12].
func EncodeU(opcode, rd uint32, imm int32) uint32 {
	return opcode&0x7F | (rd&0x1F)<<7 | uint32(imm)&0xFFFFF000
}

// EncodeJ packs a J-type instruction; imm is the byte offset.
func EncodeJ(opcode, rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return opcode&0x7F | (rd&0x1F)<<7 |
		(u>>12&0xFF)<<12 | (u>>11&0x1)<<20 |
		(u>>1&0x3FF)<<21 | (u>>20&0x1)<<31
}

// Mnemonic helpers used throughout the tests.

func Add(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x0, rs1, rs2, 0x00) }
func Sub(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x0, rs1, rs2, 0x20) }
func Sll(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x1, rs1, rs2, 0x00) }
func Slt(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x2, rs1, rs2, 0x00) }
func Sltu(rd, rs1, rs2 uint32) uint32 { return EncodeR(OpOp, rd, 0x3, rs1, rs2, 0x00) }
func Xor(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x4, rs1, rs2, 0x00) }
func Srl(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x5, rs1, rs2, 0x00) }
func Sra(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x5, rs1, rs2, 0x20) }
func Or(rd, rs1, rs2 uint32) uint32   { return EncodeR(OpOp, rd, 0x6, rs1, rs2, 0x00) }
func And(rd, rs1, rs2 uint32) uint32  { return EncodeR(OpOp, rd, 0x7, rs1, rs2, 0x00) }

func Addi(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OpOpImm, rd, 0x0, rs1, imm) }
func Slti(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OpOpImm, rd, 0x2, rs1, imm) }
func Sltiu(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpOpImm, rd, 0x3, rs1, imm) }
func Xori(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OpOpImm, rd, 0x4, rs1, imm) }
func Ori(rd, rs1 uint32, imm int32) uint32   { return EncodeI(OpOpImm, rd, 0x6, rs1, imm) }
func Andi(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OpOpImm, rd, 0x7, rs1, imm) }
func Slli(rd, rs1 uint32, shamt int32) uint32 {
	return EncodeI(OpOpImm, rd, 0x1, rs1, shamt&0x1F)
}
func Srli(rd, rs1 uint32, shamt int32) uint32 {
	return EncodeI(OpOpImm, rd, 0x5, rs1, shamt&0x1F)
}
func Srai(rd, rs1 uint32, shamt int32) uint32 {
	return EncodeI(OpOpImm, rd, 0x5, rs1, shamt&0x1F|0x400)
}

func Lb(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OpLoad, rd, F3LB, rs1, imm) }
func Lh(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OpLoad, rd, F3LH, rs1, imm) }
func Lw(rd, rs1 uint32, imm int32) uint32  { return EncodeI(OpLoad, rd, F3LW, rs1, imm) }
func Lbu(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpLoad, rd, F3LBU, rs1, imm) }
func Lhu(rd, rs1 uint32, imm int32) uint32 { return EncodeI(OpLoad, rd, F3LHU, rs1, imm) }

func Sb(rs2, rs1 uint32, imm int32) uint32 { return EncodeS(OpStore, F3SB, rs1, rs2, imm) }
func Sh(rs2, rs1 uint32, imm int32) uint32 { return EncodeS(OpStore, F3SH, rs1, rs2, imm) }
func Sw(rs2, rs1 uint32, imm int32) uint32 { return EncodeS(OpStore, F3SW, rs1, rs2, imm) }

func Beq(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(OpBranch, F3BEQ, rs1, rs2, imm) }
func Bne(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(OpBranch, F3BNE, rs1, rs2, imm) }
func Blt(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(OpBranch, F3BLT, rs1, rs2, imm) }
func Bge(rs1, rs2 uint32, imm int32) uint32  { return EncodeB(OpBranch, F3BGE, rs1, rs2, imm) }
func Bltu(rs1, rs2 uint32, imm int32) uint32 { return EncodeB(OpBranch, F3BLTU, rs1, rs2, imm) }
func Bgeu(rs1, rs2 uint32, imm int32) uint32 { return EncodeB(OpBranch, F3BGEU, rs1, rs2, imm) }

func Lui(rd uint32, imm int32) uint32          { return EncodeU(OpLUI, rd, imm) }
func Auipc(rd uint32, imm int32) uint32        { return EncodeU(OpAUIPC, rd, imm) }
func Jal(rd uint32, imm int32) uint32          { return EncodeJ(OpJAL, rd, imm) }
func Jalr(rd, rs1 uint32, imm int32) uint32    { return EncodeI(OpJALR, rd, 0x0, rs1, imm) }
