package frame

import (
	"encoding/binary"
	"fmt"
)

// PreHandshakeMessage announces the sender's receive window before its
// handshake is sent. When the sender has already received data on the
// channel it also echoes the last sequence number seen (HasSeq).
type PreHandshakeMessage struct {
	ChannelID uint32
	Free      uint32
	Seq       uint32
	HasSeq    bool
}

func (msg PreHandshakeMessage) Type() Type {
	return TypePreHandshake
}

func (msg PreHandshakeMessage) String() string {
	if msg.HasSeq {
		return fmt.Sprintf("{PreHandshakeMessage ChannelID:%d Free:%d Seq:%d}",
			msg.ChannelID, msg.Free, msg.Seq)
	}
	return fmt.Sprintf("{PreHandshakeMessage ChannelID:%d Free:%d}", msg.ChannelID, msg.Free)
}

func (msg PreHandshakeMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg PreHandshakeMessage) Bytes() []byte {
	size := 9
	if msg.HasSeq {
		size = 13
	}
	packet := make([]byte, size)
	packet[0] = byte(TypePreHandshake)
	binary.BigEndian.PutUint32(packet[1:5], msg.ChannelID)
	binary.BigEndian.PutUint32(packet[5:9], msg.Free)
	if msg.HasSeq {
		binary.BigEndian.PutUint32(packet[9:13], msg.Seq)
	}
	return packet
}
