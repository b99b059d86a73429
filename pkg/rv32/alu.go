package rv32

// ALUEval applies one ALU function to two 32-bit operands. Shift
// amounts use only the low 5 bits of b, matching the hardware shifter.
func ALUEval(fn ALUFunc, a, b uint32) uint32 {
	switch fn {
	case AluAdd:
		return a + b
	case AluSub:
		return a - b
	case AluSll:
		return a << (b & 0x1F)
	case AluSlt:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case AluSltu:
		if a < b {
			return 1
		}
		return 0
	case AluXor:
		return a ^ b
	case AluSrl:
		return a >> (b & 0x1F)
	case AluSra:
		return uint32(int32(a) >> (b & 0x1F))
	case AluOr:
		return a | b
	case AluAnd:
		return a & b
	}
	return 0
}
