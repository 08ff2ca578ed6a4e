package frame

import (
	"encoding/binary"
	"fmt"
)

// DataMessage is the header of a data frame. The payload is the next frame
// on the carrier. Seq is the sender's sequence number after the payload,
// modulo 2^32.
type DataMessage struct {
	ChannelID uint32
	Seq       uint32
}

func (msg DataMessage) Type() Type {
	return TypeData
}

func (msg DataMessage) String() string {
	return fmt.Sprintf("{DataMessage ChannelID:%d Seq:%d}", msg.ChannelID, msg.Seq)
}

func (msg DataMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg DataMessage) Bytes() []byte {
	packet := make([]byte, 9)
	packet[0] = byte(TypeData)
	binary.BigEndian.PutUint32(packet[1:5], msg.ChannelID)
	binary.BigEndian.PutUint32(packet[5:9], msg.Seq)
	return packet
}
