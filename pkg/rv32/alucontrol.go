package rv32

import (
	"errors"
	"fmt"
)

// ErrDecodeFault reports an instruction field combination the decode
// tables do not recognise. It is surfaced instead of defaulting to a
// valid operation so that bad encodings are caught, the way the
// hardware uses a don't-care output to expose unintended latches.
var ErrDecodeFault = errors.New("decode fault")

// ALUOp is the coarse operation class the control unit derives from
// the opcode. It is refined into an ALUFunc by funct3/funct7.
type ALUOp uint8

const (
	// ALUOpAdd covers loads, stores and address arithmetic: always ADD.
	ALUOpAdd ALUOp = iota
	// ALUOpSub covers branch comparison: always SUB.
	ALUOpSub
	// ALUOpFunct covers R-type and I-type ALU instructions, dispatched
	// on funct3 and funct7 bit 5.
	ALUOpFunct
)

// ALUFunc selects the concrete ALU operation.
type ALUFunc uint8

const (
	AluNone ALUFunc = iota
	AluAdd
	AluSub
	AluSll
	AluSlt
	AluSltu
	AluXor
	AluSrl
	AluSra
	AluOr
	AluAnd
)

var aluFuncNames = map[ALUFunc]string{
	AluNone: "none", AluAdd: "add", AluSub: "sub", AluSll: "sll",
	AluSlt: "slt", AluSltu: "sltu", AluXor: "xor", AluSrl: "srl",
	AluSra: "sra", AluOr: "or", AluAnd: "and",
}

func (f ALUFunc) String() string {
	if s, ok := aluFuncNames[f]; ok {
		return s
	}
	return fmt.Sprintf("ALUFunc(%d)", uint8(f))
}

// ALUControl refines an operation class into a concrete ALU function.
// funct7b5 is bit 5 of funct7 (instruction bit 30), which selects
// SUB over ADD and SRA over SRL. An unknown class or funct3 yields
// ErrDecodeFault rather than a silent default.
func ALUControl(op ALUOp, funct3 uint32, funct7b5 bool) (ALUFunc, error) {
	switch op {
	case ALUOpAdd:
		return AluAdd, nil
	case ALUOpSub:
		return AluSub, nil
	case ALUOpFunct:
		switch funct3 {
		case 0x0:
			if funct7b5 {
				return AluSub, nil
			}
			return AluAdd, nil
		case 0x1:
			return AluSll, nil
		case 0x2:
			return AluSlt, nil
		case 0x3:
			return AluSltu, nil
		case 0x4:
			return AluXor, nil
		case 0x5:
			if funct7b5 {
				return AluSra, nil
			}
			return AluSrl, nil
		case 0x6:
			return AluOr, nil
		case 0x7:
			return AluAnd, nil
		}
		return AluNone, fmt.Errorf("%w: alu funct3 %#x", ErrDecodeFault, funct3)
	}
	return AluNone, fmt.Errorf("%w: alu op class %d", ErrDecodeFault, op)
}
