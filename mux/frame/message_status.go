package frame

import (
	"encoding/binary"
	"fmt"
)

// StatusMessage reports the sender's receive window for a channel along with
// the last data sequence number it received. Finished is set once the
// sender's own write side of the channel is done, which lets a receiver that
// no longer knows the channel ignore it.
type StatusMessage struct {
	ChannelID uint32
	Free      uint32
	Seq       uint32
	Finished  bool
}

func (msg StatusMessage) Type() Type {
	if msg.Finished {
		return TypeFinishedStatus
	}
	return TypeStatus
}

func (msg StatusMessage) String() string {
	return fmt.Sprintf("{StatusMessage ChannelID:%d Free:%d Seq:%d Finished:%t}",
		msg.ChannelID, msg.Free, msg.Seq, msg.Finished)
}

func (msg StatusMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg StatusMessage) Bytes() []byte {
	packet := make([]byte, 13)
	packet[0] = byte(msg.Type())
	binary.BigEndian.PutUint32(packet[1:5], msg.ChannelID)
	binary.BigEndian.PutUint32(packet[5:9], msg.Free)
	binary.BigEndian.PutUint32(packet[9:13], msg.Seq)
	return packet
}
