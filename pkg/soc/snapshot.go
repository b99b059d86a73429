package soc

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"rvsoc/pkg/peripherals"
	"rvsoc/pkg/plic"
	"rvsoc/pkg/rv32"
)

// coreState is the JSON-serializable datapath register snapshot.
type coreState struct {
	Regs    [32]uint32 `json:"regs"`
	PC      uint32     `json:"pc"`
	OldPC   uint32     `json:"old_pc"`
	IR      uint32     `json:"ir"`
	RS1     uint32     `json:"rs1"`
	RS2     uint32     `json:"rs2"`
	ALUOut  uint32     `json:"alu_out"`
	MDR     uint32     `json:"mdr"`
	State   int        `json:"state"`
	Faulted bool       `json:"faulted"`
}

// machineState is the state.json envelope. RAM and VRAM travel as
// separate binary entries next to it.
type machineState struct {
	Core   coreState             `json:"core"`
	MIE    bool                  `json:"mie"`
	Mepc   uint32                `json:"mepc"`
	Mcause uint32                `json:"mcause"`
	Cycles uint64                `json:"cycles"`
	PLIC   plic.State            `json:"plic"`
	UART   peripherals.UARTState `json:"uart"`
	LEDs   uint32                `json:"leds"`
	SW     uint32                `json:"switches"`
	DMA    DMAState              `json:"dma"`
	NPU    peripherals.NPUState  `json:"npu"`
}

// SaveBytes serialises the paused machine into an in-memory ZIP
// archive: state.json plus ram.bin and vram.bin.
func (m *Machine) SaveBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		Core: coreState{
			Regs:    [32]uint32(m.Core.Regs),
			PC:      m.Core.PC,
			OldPC:   m.Core.OldPC,
			IR:      m.Core.IR.Raw,
			RS1:     m.Core.RS1,
			RS2:     m.Core.RS2,
			ALUOut:  m.Core.ALUOut,
			MDR:     m.Core.MDR,
			State:   int(m.Core.State),
			Faulted: m.Core.Faulted,
		},
		MIE:    m.MIE,
		Mepc:   m.Mepc,
		Mcause: m.Mcause,
		Cycles: m.Cycles,
		PLIC:   m.PLIC.State(),
		UART:   m.UART.State(),
		LEDs:   m.GPIO.LEDs,
		SW:     m.GPIO.Switches(),
		DMA:    m.DMA.State(),
		NPU:    m.NPU.State(),
	}

	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := writeZipEntry(zw, "state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "ram.bin", m.RAM.Bytes()); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "vram.bin", m.VGA.VRAM[:]); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreBytes applies an archive produced by SaveBytes. Interrupt
// handlers registered on the PLIC survive untouched.
func (m *Machine) RestoreBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "state.json")
	if err != nil {
		return err
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal state: %w", err)
	}

	m.Core.Regs = rv32.RegFile(state.Core.Regs)
	m.Core.PC = state.Core.PC
	m.Core.OldPC = state.Core.OldPC
	m.Core.IR = rv32.Decode(state.Core.IR)
	m.Core.RS1 = state.Core.RS1
	m.Core.RS2 = state.Core.RS2
	m.Core.ALUOut = state.Core.ALUOut
	m.Core.MDR = state.Core.MDR
	m.Core.State = rv32.State(state.Core.State)
	m.Core.Faulted = state.Core.Faulted

	m.MIE = state.MIE
	m.Mepc = state.Mepc
	m.Mcause = state.Mcause
	m.Cycles = state.Cycles
	m.UART.Restore(state.UART)
	m.GPIO.Restore(state.LEDs, state.SW)
	m.DMA.Restore(state.DMA)
	m.NPU.Restore(state.NPU)
	m.PLIC.Restore(state.PLIC)

	if ramData, err := readZipEntry(fileMap, "ram.bin"); err == nil {
		copy(m.RAM.Bytes(), ramData)
	}
	if vramData, err := readZipEntry(fileMap, "vram.bin"); err == nil {
		copy(m.VGA.VRAM[:], vramData)
	}
	return nil
}

// SaveTo writes the snapshot archive to a file.
func (m *Machine) SaveTo(path string) error {
	data, err := m.SaveBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFrom reads a snapshot archive from a file.
func (m *Machine) RestoreFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.RestoreBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
