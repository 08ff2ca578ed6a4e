package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		in Message
		id uint32
		ok bool
	}{
		{
			in: EndMessage{ChannelID: 10},
			id: 10,
			ok: true,
		},
		{
			in: ErrorEndMessage{ChannelID: 10},
			id: 10,
			ok: true,
		},
		{
			in: HandshakeMessage{
				ChannelID: 20,
				Free:      16384,
				Data:      []byte("hello"),
			},
			id: 20,
			ok: true,
		},
		{
			in: HandshakeMessage{
				ChannelID: 1 << 31,
				Free:      0,
				Data:      []byte{},
			},
			id: 1 << 31,
			ok: true,
		},
		{
			in: StatusMessage{
				ChannelID: 20,
				Free:      1024,
				Seq:       1<<32 - 1,
			},
			id: 20,
			ok: true,
		},
		{
			in: StatusMessage{
				ChannelID: 20,
				Free:      1024,
				Seq:       7,
				Finished:  true,
			},
			id: 20,
			ok: true,
		},
		{
			in: DataMessage{ChannelID: 10, Seq: 5},
			id: 10,
			ok: true,
		},
		{
			in: PreHandshakeMessage{ChannelID: 3, Free: 100},
			id: 3,
			ok: true,
		},
		{
			in: PreHandshakeMessage{ChannelID: 3, Free: 100, Seq: 9, HasSeq: true},
			id: 3,
			ok: true,
		},
		{
			in: KeepAliveMessage{},
			id: 0,
			ok: false,
		},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		if err := enc.Encode(test.in); err != nil {
			t.Fatal(err)
		}
		r := NewReader(&buf, 0)
		var body []byte
		for {
			p, err := r.Next()
			if err != nil {
				t.Fatal(err)
			}
			body = append(body, p.Data...)
			if p.End {
				break
			}
		}
		m, err := Decode(body)
		if err != nil {
			t.Fatal(err)
		}
		if m.Type() != test.in.Type() {
			t.Fatalf("type not equal: %s != %s", m.Type(), test.in.Type())
		}
		if !bytes.Equal(m.Bytes(), test.in.Bytes()) {
			t.Fatalf("bytes not equal for %s", test.in)
		}
		id, ok := m.Channel()
		if id != test.id {
			t.Fatal("id not equal")
		}
		if ok != test.ok {
			t.Fatal("ok not equal")
		}
		if m.String() == "" {
			t.Fatal("empty string representation")
		}
	}
}

func TestDecodeShort(t *testing.T) {
	tests := []struct {
		in  []byte
		min int
	}{
		{in: nil, min: 1},
		{in: []byte{byte(TypeEnd), 0, 0}, min: 5},
		{in: []byte{byte(TypeHandshake), 0, 0, 0, 1, 0, 0}, min: 9},
		{in: []byte{byte(TypeStatus), 0, 0, 0, 1, 0, 0, 0, 1}, min: 13},
		{in: []byte{byte(TypeData), 0, 0, 0, 1}, min: 9},
	}
	for _, test := range tests {
		_, err := Decode(test.in)
		var short *ShortFrameError
		if !errors.As(err, &short) {
			t.Fatalf("expected short frame error for %v, got %v", test.in, err)
		}
		if short.Min != test.min || short.Len != len(test.in) {
			t.Fatalf("unexpected short frame error: %v", short)
		}
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte{42, 0, 0, 0, 7})
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected unknown type error, got %v", err)
	}
	if unknown.ChannelID != 7 || unknown.Type != 42 {
		t.Fatalf("unexpected unknown type error: %+v", unknown)
	}
}

func TestReaderPieces(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	payload := bytes.Repeat([]byte("x"), 10)
	if err := w.WriteFrame(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(nil); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf, 4)
	var sizes []int
	for {
		p, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, len(p.Data))
		if p.End {
			break
		}
	}
	if len(sizes) != 3 || sizes[0] != 4 || sizes[1] != 4 || sizes[2] != 2 {
		t.Fatalf("unexpected piece sizes: %v", sizes)
	}

	p, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if !p.End || len(p.Data) != 0 {
		t.Fatalf("expected empty frame, got %+v", p)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteFrame([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:6])
	r := NewReader(truncated, 0)
	p, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if p.End || string(p.Data) != "he" {
		t.Fatalf("unexpected piece: %+v", p)
	}
	if _, err := r.Next(); err != io.ErrUnexpectedEOF {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
}
