package codec

import (
	"encoding/json"
	"io"
)

// JSONCodec encodes handshake payloads as JSON. It is the default codec of
// the bpmux command.
type JSONCodec struct{}

func (c JSONCodec) Encoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func (c JSONCodec) Decoder(r io.Reader) Decoder {
	return json.NewDecoder(r)
}
