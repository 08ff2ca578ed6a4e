package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EndMessage gracefully ends the sender's data on a channel.
type EndMessage struct {
	ChannelID uint32
}

func (msg EndMessage) Type() Type {
	return TypeEnd
}

func (msg EndMessage) String() string {
	return fmt.Sprintf("{EndMessage ChannelID:%d}", msg.ChannelID)
}

func (msg EndMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg EndMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(TypeEnd))
	binary.Write(buf, binary.BigEndian, msg)
	return buf.Bytes()
}
