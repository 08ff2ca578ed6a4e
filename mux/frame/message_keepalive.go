package frame

// KeepAliveMessage is a single byte frame that keeps idle carriers open.
type KeepAliveMessage struct{}

func (msg KeepAliveMessage) Type() Type {
	return TypeKeepAlive
}

func (msg KeepAliveMessage) String() string {
	return "{KeepAliveMessage}"
}

func (msg KeepAliveMessage) Channel() (uint32, bool) {
	return 0, false
}

func (msg KeepAliveMessage) Bytes() []byte {
	return []byte{byte(TypeKeepAlive)}
}
