package qasm

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLen bounds a single wire frame. A peek of a 10-qubit register
// stays well below this; anything larger is a corrupt length prefix.
const MaxFrameLen = 1 << 22

// WriteFrame sends one length-prefixed payload: a 4-byte little-endian
// length followed by the raw message text.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxFrameLen {
		return nil, fmt.Errorf("qasm: frame length %d above limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage frames and sends one encoded message.
func WriteMessage(w io.Writer, m *Message) error {
	return WriteFrame(w, []byte(m.Encode()))
}

// ReadMessage reads and decodes one framed message.
func ReadMessage(r io.Reader) (*Message, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return Decode(string(payload))
}
