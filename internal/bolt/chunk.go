package bolt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxChunkPayload is the largest payload a single chunk may carry: a
// 16-bit length field leaves 65535 bytes, minus the 2 bytes of the length
// header itself is not needed here (length only covers the payload), but
// per spec.md §4.C the practical split point senders use is 65_533 so the
// chunk plus its own header never exceeds a 65535-byte write.
const maxChunkPayload = 65533

// chunker buffers one logical message and writes it out as a sequence of
// length-prefixed chunks terminated by a zero-length chunk.
type chunker struct {
	buf []byte
}

func (c *chunker) reset() { c.buf = c.buf[:0] }

func (c *chunker) write(p []byte) { c.buf = append(c.buf, p...) }

// send splits the buffered message into chunks and writes them to w,
// followed by the zero-length terminator.
func (c *chunker) send(w io.Writer) error {
	data := c.buf
	var hdr [2]byte
	for len(data) > 0 {
		n := len(data)
		if n > maxChunkPayload {
			n = maxChunkPayload
		}
		binary.BigEndian.PutUint16(hdr[:], uint16(n))
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	binary.BigEndian.PutUint16(hdr[:], 0)
	_, err := w.Write(hdr[:])
	return err
}

// dechunker reassembles chunks read from r into one logical message.
type dechunker struct {
	buf [2]byte
}

// receive reads chunks until the zero-length terminator and returns the
// concatenated payload.
func (d *dechunker) receive(r io.Reader) ([]byte, error) {
	var msg []byte
	for {
		if _, err := io.ReadFull(r, d.buf[:]); err != nil {
			return nil, fmt.Errorf("bolt: reading chunk header: %w", err)
		}
		n := binary.BigEndian.Uint16(d.buf[:])
		if n == 0 {
			if len(msg) == 0 {
				return nil, fmt.Errorf("bolt: %w: empty message", ErrProtocol)
			}
			return msg, nil
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("bolt: reading chunk payload: %w", err)
		}
		msg = append(msg, chunk...)
	}
}
