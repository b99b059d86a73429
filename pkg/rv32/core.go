package rv32

import "fmt"

// Bus is the single synchronous memory port the core drives. Write32
// carries a 4-bit byte strobe; word-only masters pass 0xF.
type Bus interface {
	Read32(addr uint32) uint32
	Write32(addr, val uint32, strobe uint8)
}

// Core is the multi-cycle RV32I execution core: the control sequencer
// plus the datapath registers it steers. One call to StepCycle is one
// clock tick. All architectural registers are exported so monitors and
// snapshots can inspect them; they follow single-writer discipline and
// are only mutated inside StepCycle.
type Core struct {
	PC     uint32
	OldPC  uint32
	IR     Instruction
	RS1    uint32
	RS2    uint32
	ALUOut uint32
	MDR    uint32

	Regs  RegFile
	State State

	// Faulted latches after a decode fault; the core refuses to step
	// further instead of executing a guessed instruction.
	Faulted  bool
	FaultErr error

	bus Bus
}

// NewCore builds a core attached to a memory bus, held in reset at
// IF_ADDR with PC 0.
func NewCore(bus Bus) *Core {
	return &Core{bus: bus}
}

// Reset clears all datapath registers and restarts fetch at entry.
func (c *Core) Reset(entry uint32) {
	*c = Core{PC: entry, bus: c.bus}
}

// StepCycle executes one clock tick: apply the current state's control
// word to the datapath, then take the state transition. A decode fault
// latches the core; the error is returned on this and every later call.
func (c *Core) StepCycle() error {
	if c.Faulted {
		return c.FaultErr
	}

	cw := c.controlWord()
	if err := c.applyControl(cw); err != nil {
		return c.fault(err)
	}

	next, err := NextState(c.State, c.IR.Opcode)
	if err != nil {
		return c.fault(err)
	}
	c.State = next
	return nil
}

func (c *Core) fault(err error) error {
	c.Faulted = true
	c.FaultErr = fmt.Errorf("%s at pc %#08x: %w", c.State, c.OldPC, err)
	return c.FaultErr
}

// controlWord takes the Moore table entry for the current state and
// applies the per-instruction operand refinements: ALU sources for
// immediates and LUI/AUIPC, the PC source for JALR, and the write-back
// selector for loads and jumps.
func (c *Core) controlWord() ControlWord {
	cw := ControlWordFor(c.State)
	switch c.State {
	case ExALU:
		switch c.IR.Opcode {
		case OpOpImm:
			cw.ALUSrcB = SrcBImm
		case OpLUI:
			cw.ALUSrcA, cw.ALUSrcB, cw.ALUOp = SrcAZero, SrcBImm, ALUOpAdd
		case OpAUIPC:
			cw.ALUSrcA, cw.ALUSrcB, cw.ALUOp = SrcAPC, SrcBImm, ALUOpAdd
		}
	case ExJump:
		if c.IR.Opcode == OpJALR {
			cw.PCSrc = PCJALR
		}
	case WB:
		switch c.IR.Opcode {
		case OpLoad:
			cw.WBSel = WBMdr
		case OpJAL, OpJALR:
			cw.WBSel = WBPCPlus4
		}
	}
	return cw
}

// applyControl performs the datapath work for one cycle under cw.
func (c *Core) applyControl(cw ControlWord) error {
	// ALU operand selection and evaluation.
	var aluResult uint32
	if cw.ALUResultWrite || c.State == ExBranch {
		var a uint32
		switch cw.ALUSrcA {
		case SrcARs1:
			a = c.RS1
		case SrcAPC:
			a = c.OldPC
		case SrcAZero:
			a = 0
		}
		b := c.RS2
		if cw.ALUSrcB == SrcBImm {
			b = uint32(c.IR.Imm)
		}
		fn, err := ALUControl(cw.ALUOp, c.IR.Funct3, c.funct7b5())
		if err != nil {
			return err
		}
		aluResult = ALUEval(fn, a, b)
	}

	switch c.State {
	case IFAddr:
		// Address phase: the synchronous memory captures PC this tick.

	case IFData:
		word := c.bus.Read32(c.PC &^ 3)
		c.IR = Decode(word)     // IRWrite
		c.OldPC = c.PC          // OPCWrite
		c.PC += 4               // PCWrite, PCSrc = PC+4

	case ID:
		c.RS1 = c.Regs.Read(c.IR.Rs1) // RS1Write
		c.RS2 = c.Regs.Read(c.IR.Rs2) // RS2Write

	case ExALU, ExAddr:
		c.ALUOut = aluResult // ALUResultWrite

	case ExBranch:
		taken, err := BranchTaken(c.IR.Funct3, c.RS1, c.RS2)
		if err != nil {
			return err
		}
		// PCWrite is gated by the branch condition for this funct3.
		if cw.PCWrite && taken {
			c.PC = c.OldPC + uint32(c.IR.Imm)
		}
		_ = aluResult // the comparison subtract; hardware discards it too

	case ExJump:
		if cw.PCSrc == PCJALR {
			c.PC = (c.RS1 + uint32(c.IR.Imm)) &^ 1
		} else {
			c.PC = c.OldPC + uint32(c.IR.Imm)
		}

	case MemLA:
		// Data address phase: ALUOut is presented on the data port.

	case MemLW:
		raw := c.bus.Read32(c.ALUOut &^ 3)
		v, err := LoadExtract(raw, c.ALUOut&3, c.IR.Funct3)
		if err != nil {
			return err
		}
		c.MDR = v // MDRWrite

	case MemSA:
		c.MDR = c.bus.Read32(c.ALUOut &^ 3) // MDRWrite: word for lane merge

	case MemSW:
		word, strobe, err := StoreMerge(c.MDR, c.RS2, c.ALUOut&3, c.IR.Funct3)
		if err != nil {
			return err
		}
		c.bus.Write32(c.ALUOut&^3, word, strobe) // MemWrite

	case WB:
		var v uint32
		switch cw.WBSel {
		case WBAlu:
			v = c.ALUOut
		case WBMdr:
			v = c.MDR
		case WBPCPlus4:
			v = c.OldPC + 4
		}
		c.Regs.Write(c.IR.Rd, v) // RegWrite
	}
	return nil
}

// funct7b5 returns the effective funct7 bit 5 for ALU control: real
// for R-type, honoured for I-type shifts (SRAI), and forced low for
// the remaining I-type operations, which have no funct7 field.
func (c *Core) funct7b5() bool {
	b5 := (c.IR.Funct7>>5)&1 == 1
	switch c.IR.Opcode {
	case OpOp:
		return b5
	case OpOpImm:
		return b5 && c.IR.Funct3 == 0x5
	}
	return false
}
