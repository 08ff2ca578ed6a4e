package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ErrorEndMessage ends the sender's data on a channel and tells the
// receiver that the sender's application reported an error.
type ErrorEndMessage struct {
	ChannelID uint32
}

func (msg ErrorEndMessage) Type() Type {
	return TypeErrorEnd
}

func (msg ErrorEndMessage) String() string {
	return fmt.Sprintf("{ErrorEndMessage ChannelID:%d}", msg.ChannelID)
}

func (msg ErrorEndMessage) Channel() (uint32, bool) {
	return msg.ChannelID, true
}

func (msg ErrorEndMessage) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(TypeErrorEnd))
	binary.Write(buf, binary.BigEndian, msg)
	return buf.Bytes()
}
