package frame

import (
	"io"
)

// Encoder writes messages and data payloads as frames.
type Encoder struct {
	fw *Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{fw: NewWriter(w)}
}

// Encode writes msg as one header frame.
func (enc *Encoder) Encode(msg Message) error {
	return enc.fw.WriteFrame(msg.Bytes())
}

// EncodePayload writes the payload frame that follows a DataMessage.
func (enc *Encoder) EncodePayload(data []byte) error {
	return enc.fw.WriteFrame(data)
}
