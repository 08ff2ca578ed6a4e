// Package frame implements encoding and decoding of bpmux message frames.
//
// Every message travels as one length-prefixed frame on the carrier. The
// first byte of a header frame is its Type; the payload of a DATA message is
// carried by the frame that immediately follows the DATA header.
package frame

import "fmt"

// Type is the tag in the first byte of a header frame.
type Type uint8

const (
	TypeEnd Type = iota
	TypeHandshake
	TypeStatus
	TypeFinishedStatus
	TypeData
	TypePreHandshake
	TypeErrorEnd
	TypeKeepAlive
)

var typeNames = [...]string{
	TypeEnd:            "end",
	TypeHandshake:      "handshake",
	TypeStatus:         "status",
	TypeFinishedStatus: "finished_status",
	TypeData:           "data",
	TypePreHandshake:   "pre_handshake",
	TypeErrorEnd:       "error_end",
	TypeKeepAlive:      "keep_alive",
}

// minSizes holds the smallest valid header frame for each type,
// including the type byte.
var minSizes = [...]int{
	TypeEnd:            5,
	TypeHandshake:      9,
	TypeStatus:         13,
	TypeFinishedStatus: 13,
	TypeData:           9,
	TypePreHandshake:   9,
	TypeErrorEnd:       5,
	TypeKeepAlive:      1,
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// Valid reports whether t is one of the eight known message types.
func (t Type) Valid() bool {
	return t <= TypeKeepAlive
}

// MinSize returns the minimum header frame length for t, or 0 if t is unknown.
func (t Type) MinSize() int {
	if !t.Valid() {
		return 0
	}
	return minSizes[t]
}

// Message is a decoded header frame.
type Message interface {
	Type() Type
	Channel() (uint32, bool)
	String() string
	Bytes() []byte
}
