package frame

import (
	"encoding/binary"
	"fmt"
)

// ShortFrameError is returned by Decode when a header frame is shorter than
// the minimum for its type.
type ShortFrameError struct {
	Type Type
	Len  int
	Min  int
}

func (e *ShortFrameError) Error() string {
	return fmt.Sprintf("frame: short buffer length %d < %d", e.Len, e.Min)
}

// UnknownTypeError is returned by Decode for a frame with an unknown type
// byte. ChannelID is the channel the frame was addressed to.
type UnknownTypeError struct {
	Type      Type
	ChannelID uint32
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("frame: unknown type: %d", uint8(e.Type))
}

// Decode decodes a complete header frame. The returned message does not
// retain b.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, &ShortFrameError{Len: 0, Min: 1}
	}

	t := Type(b[0])
	if !t.Valid() {
		if len(b) < 5 {
			return nil, &ShortFrameError{Type: t, Len: len(b), Min: 5}
		}
		return nil, &UnknownTypeError{Type: t, ChannelID: binary.BigEndian.Uint32(b[1:5])}
	}
	if len(b) < t.MinSize() {
		return nil, &ShortFrameError{Type: t, Len: len(b), Min: t.MinSize()}
	}

	if t == TypeKeepAlive {
		return KeepAliveMessage{}, nil
	}

	channelID := binary.BigEndian.Uint32(b[1:5])

	switch t {
	case TypeEnd:
		return EndMessage{ChannelID: channelID}, nil
	case TypeErrorEnd:
		return ErrorEndMessage{ChannelID: channelID}, nil
	case TypeData:
		return DataMessage{
			ChannelID: channelID,
			Seq:       binary.BigEndian.Uint32(b[5:9]),
		}, nil
	case TypeStatus, TypeFinishedStatus:
		return StatusMessage{
			ChannelID: channelID,
			Free:      binary.BigEndian.Uint32(b[5:9]),
			Seq:       binary.BigEndian.Uint32(b[9:13]),
			Finished:  t == TypeFinishedStatus,
		}, nil
	case TypePreHandshake:
		msg := PreHandshakeMessage{
			ChannelID: channelID,
			Free:      binary.BigEndian.Uint32(b[5:9]),
		}
		if len(b) >= 13 {
			msg.Seq = binary.BigEndian.Uint32(b[9:13])
			msg.HasSeq = true
		}
		return msg, nil
	case TypeHandshake:
		data := make([]byte, len(b)-9)
		copy(data, b[9:])
		return HandshakeMessage{
			ChannelID: channelID,
			Free:      binary.BigEndian.Uint32(b[5:9]),
			Data:      data,
		}, nil
	}

	// unreachable for valid types
	return nil, &UnknownTypeError{Type: t, ChannelID: channelID}
}
