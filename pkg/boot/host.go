package boot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Send speaks the host side of the download protocol over rw: magic,
// wait for the ack, length plus payload, then wait for the prompt.
// Progress dots and anything else the device prints pass through to
// transcript when it is non-nil.
func Send(rw io.ReadWriter, image []byte, transcript io.Writer) error {
	br := bufio.NewReader(rw)

	if _, err := rw.Write(Magic[:]); err != nil {
		return fmt.Errorf("send magic: %w", err)
	}
	if err := awaitByte(br, '!', transcript); err != nil {
		return fmt.Errorf("await ack: %w", err)
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(image)))
	if _, err := rw.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("send length: %w", err)
	}
	if _, err := rw.Write(image); err != nil {
		return fmt.Errorf("send payload: %w", err)
	}

	if err := awaitByte(br, '>', transcript); err != nil {
		return fmt.Errorf("await prompt: %w", err)
	}
	return nil
}

func awaitByte(r *bufio.Reader, want byte, transcript io.Writer) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if transcript != nil {
			transcript.Write([]byte{b})
		}
		if b == want {
			return nil
		}
	}
}
