package frame

import (
	"encoding/binary"
	"fmt"
)

// HandshakeMessage opens or answers a channel. Free is the sender's receive
// window and Data is opaque application handshake data.
type HandshakeMessage struct {
	ChannelID uint32
	Free      uint32
	Data      []byte
}

func (msg HandshakeMessage) Type() Type {
	return TypeHandshake
}

func (msg HandshakeMessage) String() string {
	return fmt.Sprintf("{HandshakeMessage ChannelID:%d Free:%d Data: %d bytes}",
		msg.ChannelID, msg.Free, len(msg.Data))
}

func (msg HandshakeMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg HandshakeMessage) Bytes() []byte {
	packet := make([]byte, 9, 9+len(msg.Data))
	packet[0] = byte(TypeHandshake)
	binary.BigEndian.PutUint32(packet[1:5], msg.ChannelID)
	binary.BigEndian.PutUint32(packet[5:9], msg.Free)
	return append(packet, msg.Data...)
}
