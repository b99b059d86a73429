package rv32

import (
	"errors"
	"testing"
)

func TestLoadExtract(t *testing.T) {
	// Word 0x11223344: lane 0 = 0x44 ... lane 3 = 0x11 (little endian).
	// Word 0x89ABCDEF exercises sign extension on every lane.
	tests := []struct {
		name    string
		word    uint32
		addrLow uint32
		funct3  uint32
		want    uint32
	}{
		{"lw", 0x11223344, 0, F3LW, 0x11223344},

		{"lb_lane0", 0x11223344, 0, F3LB, 0x00000044},
		{"lb_lane1", 0x11223344, 1, F3LB, 0x00000033},
		{"lb_lane2", 0x11223344, 2, F3LB, 0x00000022},
		{"lb_lane3", 0x11223344, 3, F3LB, 0x00000011},

		{"lb_neg_lane0", 0x89ABCDEF, 0, F3LB, 0xFFFFFFEF},
		{"lb_neg_lane1", 0x89ABCDEF, 1, F3LB, 0xFFFFFFCD},
		{"lb_neg_lane2", 0x89ABCDEF, 2, F3LB, 0xFFFFFFAB},
		{"lb_neg_lane3", 0x89ABCDEF, 3, F3LB, 0xFFFFFF89},

		{"lbu_lane0", 0x89ABCDEF, 0, F3LBU, 0x000000EF},
		{"lbu_lane3", 0x89ABCDEF, 3, F3LBU, 0x00000089},

		{"lh_low", 0x89ABCDEF, 0, F3LH, 0xFFFFCDEF},
		{"lh_high", 0x89ABCDEF, 2, F3LH, 0xFFFF89AB},
		{"lh_addrbit0_ignored", 0x89ABCDEF, 1, F3LH, 0xFFFFCDEF},

		{"lhu_low", 0x89ABCDEF, 0, F3LHU, 0x0000CDEF},
		{"lhu_high", 0x89ABCDEF, 2, F3LHU, 0x000089AB},

		{"lh_pos", 0x11223344, 0, F3LH, 0x00003344},
		{"lh_pos_high", 0x11223344, 2, F3LH, 0x00001122},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadExtract(tt.word, tt.addrLow, tt.funct3)
			if err != nil {
				t.Fatalf("LoadExtract: unexpected error %v", err)
			}
			if got != tt.want {
				t.Errorf("LoadExtract(%#08x, %d, %#x) = %#08x, want %#08x",
					tt.word, tt.addrLow, tt.funct3, got, tt.want)
			}
		})
	}
}

func TestLoadExtractFaults(t *testing.T) {
	// Store funct3 values and reserved encodings are not loads.
	for _, f3 := range []uint32{0x3, 0x6, 0x7} {
		if _, err := LoadExtract(0, 0, f3); !errors.Is(err, ErrDecodeFault) {
			t.Errorf("LoadExtract funct3 %#x: error = %v, want ErrDecodeFault", f3, err)
		}
	}
	if _, err := LoadExtract(0, 4, F3LW); !errors.Is(err, ErrDecodeFault) {
		t.Errorf("LoadExtract lane 4: error = %v, want ErrDecodeFault", err)
	}
}

func TestStoreMerge(t *testing.T) {
	const old = 0xAAAAAAAA
	const src = 0x12345678
	tests := []struct {
		name       string
		addrLow    uint32
		funct3     uint32
		wantWord   uint32
		wantStrobe uint8
	}{
		{"sw", 0, F3SW, 0x12345678, 0xF},
		{"sh_low", 0, F3SH, 0xAAAA5678, 0x3},
		{"sh_high", 2, F3SH, 0x5678AAAA, 0xC},
		{"sb_lane0", 0, F3SB, 0xAAAAAA78, 0x1},
		{"sb_lane1", 1, F3SB, 0xAAAA78AA, 0x2},
		{"sb_lane2", 2, F3SB, 0xAA78AAAA, 0x4},
		{"sb_lane3", 3, F3SB, 0x78AAAAAA, 0x8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, strobe, err := StoreMerge(old, src, tt.addrLow, tt.funct3)
			if err != nil {
				t.Fatalf("StoreMerge: unexpected error %v", err)
			}
			if word != tt.wantWord || strobe != tt.wantStrobe {
				t.Errorf("StoreMerge(%d, %#x) = %#08x/%#x, want %#08x/%#x",
					tt.addrLow, tt.funct3, word, strobe, tt.wantWord, tt.wantStrobe)
			}
		})
	}
}

func TestStoreMergeFaults(t *testing.T) {
	for _, f3 := range []uint32{0x3, 0x4, 0x5, 0x6, 0x7} {
		if _, _, err := StoreMerge(0, 0, 0, f3); !errors.Is(err, ErrDecodeFault) {
			t.Errorf("StoreMerge funct3 %#x: error = %v, want ErrDecodeFault", f3, err)
		}
	}
}
