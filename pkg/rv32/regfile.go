package rv32

// RegFile is the 32-entry general purpose register file. x0 is
// hard-wired to zero: reads always return 0 and writes are discarded.
type RegFile [32]uint32

// Read returns the value of register i.
func (r *RegFile) Read(i uint32) uint32 {
	i &= 31
	if i == 0 {
		return 0
	}
	return r[i]
}

// Write sets register i. Writes to x0 are dropped.
func (r *RegFile) Write(i, v uint32) {
	i &= 31
	if i != 0 {
		r[i] = v
	}
}
