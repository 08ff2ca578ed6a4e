package mux

import (
	"io"
	"net"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// wsListener wraps a net.Listener and WebSocket server to return connected muxes.
type wsListener struct {
	net.Listener
	accepted chan *Mux
	closed   chan struct{}
	once     sync.Once
}

// Accept waits for and returns the next connected mux to the listener.
func (l *wsListener) Accept() (*Mux, error) {
	select {
	case m := <-l.accepted:
		return m, nil
	case <-l.closed:
		return nil, io.EOF
	}
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *wsListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return l.Listener.Close()
}

func (l *wsListener) Addr() net.Addr {
	return l.Listener.Addr()
}

// ListenWS takes a TCP address and returns a Listener for a HTTP+WebSocket server listening on the given address.
func ListenWS(addr string, cfg *Config) (Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	wsl := &wsListener{
		Listener: l,
		accepted: make(chan *Mux),
		closed:   make(chan struct{}),
	}
	srv := &http.Server{
		Addr: addr,
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			ws.PayloadType = websocket.BinaryFrame
			m := New(ws, cfg)
			defer m.Close()
			select {
			case wsl.accepted <- m:
			case <-wsl.closed:
				return
			}
			// the connection is closed when the handler returns
			m.Wait()
		}),
	}
	go srv.Serve(l)
	return wsl, nil
}
