package frame

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"syscall"
)

// DefaultPieceSize is the largest piece a Reader returns by default.
const DefaultPieceSize = 16 * 1024

// Writer writes length prefixed frames. Each frame is passed to the
// underlying writer in a single Write call.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes body as one frame.
func (w *Writer) WriteFrame(body []byte) error {
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(body)))
	copy(buf[4:], body)
	_, err := w.w.Write(buf)
	return err
}

// Piece is part of a frame. End is set on the last piece of a frame.
type Piece struct {
	Data []byte
	End  bool
}

// Reader reads length prefixed frames and returns them in pieces, so a
// large frame never has to be held in memory at once.
type Reader struct {
	r         io.Reader
	buf       []byte
	remaining int
	inFrame   bool
}

// NewReader returns a Reader that returns pieces of at most pieceSize bytes.
func NewReader(r io.Reader, pieceSize int) *Reader {
	if pieceSize <= 0 {
		pieceSize = DefaultPieceSize
	}
	return &Reader{r: r, buf: make([]byte, pieceSize)}
}

// Next returns the next piece. Piece.Data is only valid until the next call.
// A zero-length frame is returned as a single piece with no data. Next returns
// io.EOF only when the underlying reader ends on a frame boundary.
func (r *Reader) Next() (Piece, error) {
	if !r.inFrame {
		var prefix [4]byte
		if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
			return Piece{}, resetAsEOF(err)
		}
		r.remaining = int(binary.BigEndian.Uint32(prefix[:]))
		if r.remaining == 0 {
			return Piece{End: true}, nil
		}
		r.inFrame = true
	}

	n := r.remaining
	if n > len(r.buf) {
		n = len(r.buf)
	}
	k, err := io.ReadAtLeast(r.r, r.buf[:n], 1)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Piece{}, err
	}
	r.remaining -= k
	if r.remaining == 0 {
		r.inFrame = false
	}
	return Piece{Data: r.buf[:k], End: !r.inFrame}, nil
}

func resetAsEOF(err error) error {
	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) && syscallErr.Err == syscall.ECONNRESET {
		return io.EOF
	}
	return err
}
