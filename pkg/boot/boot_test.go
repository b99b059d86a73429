package boot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"testing"

	"rvsoc/pkg/soc"
)

func feed(m *soc.Machine, data []byte) {
	for _, b := range data {
		m.UART.PushByte(b)
	}
}

func frame(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)
	return buf.Bytes()
}

func TestReceiveSmallImage(t *testing.T) {
	m := soc.NewMachine()
	var console bytes.Buffer
	m.UART.Output = &console

	payload := []byte{0x13, 0x00, 0x00, 0x00} // one NOP
	feed(m, frame(payload))

	r := NewReceiver(m.Bus)
	r.PollBudget = 64
	entry, size, err := r.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if entry != soc.LoadBase || size != 4 {
		t.Fatalf("entry %#x size %d", entry, size)
	}
	if got := m.RAM.Read32(soc.LoadBase - soc.RAMBase); got != 0x13 {
		t.Fatalf("loaded word = %#x", got)
	}
	// Under a KiB: ack and prompt, no progress dots.
	if got := console.String(); got != "!>\r\n" {
		t.Fatalf("console = %q, want %q", got, "!>\r\n")
	}
}

func TestReceiveProgressDots(t *testing.T) {
	m := soc.NewMachine()
	var console bytes.Buffer
	m.UART.Output = &console

	payload := make([]byte, 2048)
	for i := range payload {
		payload[i] = byte(i)
	}
	feed(m, frame(payload))

	r := NewReceiver(m.Bus)
	r.PollBudget = 64
	if _, _, err := r.Receive(); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got := console.String(); got != "!..>\r\n" {
		t.Fatalf("console = %q, want %q", got, "!..>\r\n")
	}
	for i := 0; i < 2048; i += 4 {
		want := binary.LittleEndian.Uint32(payload[i:])
		if got := m.RAM.Read32(soc.LoadBase - soc.RAMBase + uint32(i)); got != want {
			t.Fatalf("payload word %d = %#x, want %#x", i/4, got, want)
		}
	}
}

func TestReceiveResynchronizes(t *testing.T) {
	m := soc.NewMachine()
	m.UART.Output = &bytes.Buffer{}

	// Line noise and a false start; the frame's own leading 0xCA must
	// re-open the match rather than be discarded.
	feed(m, []byte{0x00, 0xCA, 0xFE, 0x55, 0xCA})
	feed(m, frame([]byte{1, 2, 3, 4}))

	r := NewReceiver(m.Bus)
	r.PollBudget = 64
	if _, _, err := r.Receive(); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got := m.RAM.Read32(soc.LoadBase - soc.RAMBase); got != 0x04030201 {
		t.Fatalf("payload = %#x", got)
	}
}

func TestReceivePollBudget(t *testing.T) {
	m := soc.NewMachine()
	r := NewReceiver(m.Bus)
	r.PollBudget = 8
	if _, _, err := r.Receive(); !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
}

func TestSendHostSide(t *testing.T) {
	host, dev := net.Pipe()
	defer host.Close()
	defer dev.Close()

	image := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	devErr := make(chan error, 1)
	go func() {
		devErr <- func() error {
			buf := make([]byte, 4)
			if _, err := readFull(dev, buf); err != nil {
				return err
			}
			if !bytes.Equal(buf, Magic[:]) {
				t.Errorf("magic = % x", buf)
			}
			if _, err := dev.Write([]byte{'!'}); err != nil {
				return err
			}
			if _, err := readFull(dev, buf); err != nil {
				return err
			}
			n := binary.LittleEndian.Uint32(buf)
			payload := make([]byte, n)
			if _, err := readFull(dev, payload); err != nil {
				return err
			}
			if !bytes.Equal(payload, image) {
				t.Errorf("payload = % x", payload)
			}
			_, err := dev.Write([]byte{'>', '\r', '\n'})
			return err
		}()
	}()

	var transcript bytes.Buffer
	if err := Send(host, image, &transcript); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := <-devErr; err != nil {
		t.Fatalf("device side: %v", err)
	}
	if transcript.String() != "!>" {
		t.Fatalf("transcript = %q", transcript.String())
	}
}

func readFull(c net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
