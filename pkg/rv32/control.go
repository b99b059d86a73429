package rv32

import "fmt"

// State is one step of the multi-cycle control sequencer. The machine
// is a Moore FSM: the control word is a function of the state alone,
// while the next state depends on the decoded opcode.
type State uint8

const (
	IFAddr State = iota // present PC on the instruction port
	IFData              // latch IR, advance PC
	ID                  // decode, capture rs1/rs2
	ExALU               // R-type / I-type / LUI / AUIPC compute
	ExAddr              // load/store effective address
	ExBranch            // compare and conditionally redirect PC
	ExJump              // JAL/JALR redirect PC
	MemLA               // load: present data address
	MemLW               // load: latch MDR
	MemSA               // store: read word for lane merge
	MemSW               // store: write merged word
	WB                  // register write-back
	numStates
)

var stateNames = [numStates]string{
	"IF_ADDR", "IF_DATA", "ID", "EX_ALU", "EX_ADDR", "EX_BRANCH",
	"EX_JUMP", "MEM_LA", "MEM_LW", "MEM_SA", "MEM_SW", "WB",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// DataMemCycle reports whether the state drives the data side of the
// single-ported memory. Fetch states and data states are disjoint, so
// the port never sees two live requests in one cycle.
func (s State) DataMemCycle() bool {
	return s == MemLA || s == MemLW || s == MemSA || s == MemSW
}

// PCSrc selects the next-PC source.
type PCSrc uint8

const (
	PCNext   PCSrc = iota // PC + 4
	PCBranch              // OldPC + immediate (branches and JAL)
	PCJALR                // (rs1 + immediate) with bit 0 cleared
)

// SrcA selects the first ALU operand.
type SrcA uint8

const (
	SrcARs1 SrcA = iota
	SrcAPC
	SrcAZero
)

// SrcB selects the second ALU operand.
type SrcB uint8

const (
	SrcBRs2 SrcB = iota
	SrcBImm
)

// WBSel selects the register write-back value.
type WBSel uint8

const (
	WBAlu WBSel = iota
	WBMdr
	WBPCPlus4
)

// ControlWord is the flat set of control signals one state asserts.
// Each datapath register has a single *Write signal and is only
// written in a cycle where that signal is set.
type ControlWord struct {
	PCWrite  bool
	OPCWrite bool
	PCSrc    PCSrc
	IRWrite  bool
	MemWrite bool

	ALUSrcA SrcA
	ALUSrcB SrcB
	ALUOp   ALUOp

	RegWrite bool
	WBSel    WBSel

	RS1Write       bool
	RS2Write       bool
	ALUResultWrite bool
	MDRWrite       bool
}

// ctrlWords is the per-state control table. IRWrite is asserted in
// exactly one state (IF_DATA); PCWrite appears only in IF_DATA,
// EX_BRANCH (gated by the branch condition) and EX_JUMP, which can
// never coincide, so at most one source ever drives PC per cycle.
var ctrlWords = [numStates]ControlWord{
	IFAddr: {},
	IFData: {IRWrite: true, PCWrite: true, OPCWrite: true, PCSrc: PCNext},
	ID:     {RS1Write: true, RS2Write: true},
	ExALU: {ALUOp: ALUOpFunct, ALUSrcA: SrcARs1, ALUSrcB: SrcBRs2,
		ALUResultWrite: true},
	ExAddr: {ALUOp: ALUOpAdd, ALUSrcA: SrcARs1, ALUSrcB: SrcBImm,
		ALUResultWrite: true},
	ExBranch: {ALUOp: ALUOpSub, ALUSrcA: SrcARs1, ALUSrcB: SrcBRs2,
		PCWrite: true, PCSrc: PCBranch},
	ExJump: {PCWrite: true, PCSrc: PCBranch},
	MemLA:  {},
	MemLW:  {MDRWrite: true},
	MemSA:  {MDRWrite: true},
	MemSW:  {MemWrite: true},
	WB:     {RegWrite: true, WBSel: WBAlu},
}

// ControlWordFor returns the control word a state asserts, before the
// per-instruction operand refinements the datapath applies (ALU source
// selection for LUI/AUIPC and immediates, PCSrc for JALR, WBSel for
// loads and jumps).
func ControlWordFor(s State) ControlWord {
	if s < numStates {
		return ctrlWords[s]
	}
	return ControlWord{}
}

// NextState computes the transition out of state s for the opcode held
// in the IR. States before ID ignore the opcode. An opcode outside the
// RV32I base classes is a decode fault discovered in ID.
func NextState(s State, opcode uint32) (State, error) {
	switch s {
	case IFAddr:
		return IFData, nil
	case IFData:
		return ID, nil
	case ID:
		switch opcode {
		case OpOp, OpOpImm, OpLUI, OpAUIPC:
			return ExALU, nil
		case OpLoad, OpStore:
			return ExAddr, nil
		case OpBranch:
			return ExBranch, nil
		case OpJAL, OpJALR:
			return ExJump, nil
		}
		return IFAddr, fmt.Errorf("%w: opcode %#02x", ErrDecodeFault, opcode)
	case ExALU:
		return WB, nil
	case ExAddr:
		if opcode == OpStore {
			return MemSA, nil
		}
		return MemLA, nil
	case ExBranch:
		// Branch resolution happens inside EX_BRANCH; fetch always follows.
		return IFAddr, nil
	case ExJump:
		return WB, nil
	case MemLA:
		return MemLW, nil
	case MemLW:
		return WB, nil
	case MemSA:
		return MemSW, nil
	case MemSW:
		return IFAddr, nil
	case WB:
		return IFAddr, nil
	}
	return IFAddr, fmt.Errorf("%w: state %d", ErrDecodeFault, s)
}

// BranchTaken evaluates the branch condition for funct3 on the
// captured source operands.
func BranchTaken(funct3, a, b uint32) (bool, error) {
	switch funct3 {
	case F3BEQ:
		return a == b, nil
	case F3BNE:
		return a != b, nil
	case F3BLT:
		return int32(a) < int32(b), nil
	case F3BGE:
		return int32(a) >= int32(b), nil
	case F3BLTU:
		return a < b, nil
	case F3BGEU:
		return a >= b, nil
	}
	return false, fmt.Errorf("%w: branch funct3 %#x", ErrDecodeFault, funct3)
}
