package rv32

import (
	"errors"
	"testing"
)

func TestControlWordInvariants(t *testing.T) {
	irWriters := 0
	for s := State(0); s < numStates; s++ {
		cw := ControlWordFor(s)
		if cw.IRWrite {
			irWriters++
			if s != IFData {
				t.Errorf("IRWrite asserted in %v", s)
			}
		}
		if cw.PCWrite && s != IFData && s != ExBranch && s != ExJump {
			t.Errorf("PCWrite asserted in %v", s)
		}
		if cw.MemWrite && s != MemSW {
			t.Errorf("MemWrite asserted in %v", s)
		}
	}
	if irWriters != 1 {
		t.Errorf("IRWrite asserted in %d states, want exactly 1", irWriters)
	}
}

func TestNextStateTable(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		opcode uint32
		want   State
	}{
		{"fetch_addr", IFAddr, 0, IFData},
		{"fetch_data", IFData, 0, ID},
		{"id_rtype", ID, OpOp, ExALU},
		{"id_itype", ID, OpOpImm, ExALU},
		{"id_lui", ID, OpLUI, ExALU},
		{"id_auipc", ID, OpAUIPC, ExALU},
		{"id_load", ID, OpLoad, ExAddr},
		{"id_store", ID, OpStore, ExAddr},
		{"id_branch", ID, OpBranch, ExBranch},
		{"id_jal", ID, OpJAL, ExJump},
		{"id_jalr", ID, OpJALR, ExJump},
		{"ex_alu", ExALU, OpOp, WB},
		{"ex_addr_load", ExAddr, OpLoad, MemLA},
		{"ex_addr_store", ExAddr, OpStore, MemSA},
		{"ex_branch", ExBranch, OpBranch, IFAddr},
		{"ex_jump", ExJump, OpJAL, WB},
		{"mem_la", MemLA, OpLoad, MemLW},
		{"mem_lw", MemLW, OpLoad, WB},
		{"mem_sa", MemSA, OpStore, MemSW},
		{"mem_sw", MemSW, OpStore, IFAddr},
		{"wb", WB, OpOp, IFAddr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextState(tt.state, tt.opcode)
			if err != nil {
				t.Fatalf("NextState(%v, %#x): unexpected error %v", tt.state, tt.opcode, err)
			}
			if got != tt.want {
				t.Errorf("NextState(%v, %#x) = %v, want %v", tt.state, tt.opcode, got, tt.want)
			}
		})
	}
}

func TestNextStateIllegalOpcode(t *testing.T) {
	for _, op := range []uint32{0x00, 0x7F, 0x73, 0x0F} {
		if _, err := NextState(ID, op); !errors.Is(err, ErrDecodeFault) {
			t.Errorf("NextState(ID, %#02x): error = %v, want ErrDecodeFault", op, err)
		}
	}
}

func TestBranchTaken(t *testing.T) {
	tests := []struct {
		name   string
		funct3 uint32
		a, b   uint32
		want   bool
	}{
		{"beq_eq", F3BEQ, 5, 5, true},
		{"beq_ne", F3BEQ, 5, 6, false},
		{"bne_ne", F3BNE, 5, 6, true},
		{"bne_eq", F3BNE, 5, 5, false},
		{"blt_signed", F3BLT, 0xFFFFFFFF, 0, true}, // -1 < 0
		{"blt_false", F3BLT, 0, 0xFFFFFFFF, false},
		{"bge_eq", F3BGE, 7, 7, true},
		{"bge_signed", F3BGE, 0, 0xFFFFFFFF, true},
		{"bltu_unsigned", F3BLTU, 0, 0xFFFFFFFF, true},
		{"bltu_false", F3BLTU, 0xFFFFFFFF, 0, false},
		{"bgeu_true", F3BGEU, 0xFFFFFFFF, 0, true},
		{"bgeu_eq", F3BGEU, 3, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BranchTaken(tt.funct3, tt.a, tt.b)
			if err != nil {
				t.Fatalf("BranchTaken: unexpected error %v", err)
			}
			if got != tt.want {
				t.Errorf("BranchTaken(%#x, %#x, %#x) = %v, want %v", tt.funct3, tt.a, tt.b, got, tt.want)
			}
		})
	}

	// funct3 2 and 3 are reserved in the branch space.
	for _, f3 := range []uint32{0x2, 0x3} {
		if _, err := BranchTaken(f3, 0, 0); !errors.Is(err, ErrDecodeFault) {
			t.Errorf("BranchTaken(%#x): error = %v, want ErrDecodeFault", f3, err)
		}
	}
}
