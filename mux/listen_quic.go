package mux

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/quic-go/quic-go"
)

// quicListener accepts QUIC connections and returns a mux over the first
// bidirectional stream the peer opens on each.
type quicListener struct {
	l   *quic.Listener
	cfg *Config
}

func (l *quicListener) Accept() (*Mux, error) {
	ctx := context.Background()
	conn, err := l.l.Accept(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, err
	}
	return New(&quicCarrier{Stream: stream, conn: conn}, l.cfg), nil
}

func (l *quicListener) Close() error {
	return l.l.Close()
}

func (l *quicListener) Addr() net.Addr {
	return l.l.Addr()
}

// ListenQUIC creates a QUIC listener at the given UDP address. tlsConf must
// carry a certificate and set NextProtos.
func ListenQUIC(addr string, tlsConf *tls.Config, cfg *Config) (Listener, error) {
	l, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	return &quicListener{l: l, cfg: cfg}, nil
}
