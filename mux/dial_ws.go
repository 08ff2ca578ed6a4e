package mux

import (
	"strings"

	"golang.org/x/net/websocket"
)

// DialWS returns a Mux over a WebSocket connection to ws://addr. The
// address is a host and port, optionally followed by a path. Frames are
// sent as binary WebSocket messages.
func DialWS(addr string, cfg *Config) (*Mux, error) {
	host, path, _ := strings.Cut(addr, "/")
	wsConf, err := websocket.NewConfig("ws://"+host+"/"+path, "http://"+host+"/")
	if err != nil {
		return nil, err
	}
	ws, err := websocket.DialConfig(wsConf)
	if err != nil {
		return nil, err
	}
	ws.PayloadType = websocket.BinaryFrame
	return New(ws, cfg), nil
}
