package codec

import (
	"bytes"
)

// Marshal encodes v as a handshake payload.
func Marshal(c Codec, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandshakeParser returns a function that decodes handshake payloads with c,
// suitable for mux.Config.ParseHandshakeData. An empty payload decodes to nil.
func HandshakeParser(c Codec) func([]byte) (any, error) {
	return func(b []byte) (any, error) {
		if len(b) == 0 {
			return nil, nil
		}
		var v interface{}
		if err := c.Decoder(bytes.NewReader(b)).Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
