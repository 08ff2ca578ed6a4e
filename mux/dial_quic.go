package mux

import (
	"context"
	"crypto/tls"

	"github.com/hashicorp/go-multierror"
	"github.com/quic-go/quic-go"
)

// quicCarrier is one bidirectional QUIC stream. Closing the stream only
// closes its write direction, so it doubles as CloseWrite.
type quicCarrier struct {
	quic.Stream
	conn quic.Connection
}

func (c *quicCarrier) CloseWrite() error {
	return c.Stream.Close()
}

func (c *quicCarrier) Close() error {
	c.Stream.CancelRead(0)
	var err error
	if cerr := c.Stream.Close(); cerr != nil {
		err = multierror.Append(err, cerr)
	}
	if cerr := c.conn.CloseWithError(0, "mux closed"); cerr != nil {
		err = multierror.Append(err, cerr)
	}
	return err
}

// DialQUIC returns a Mux over a bidirectional stream of a new QUIC
// connection. tlsConf must set NextProtos.
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config, cfg *Config) (*Mux, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, err
	}
	m := New(&quicCarrier{Stream: stream, conn: conn}, cfg)
	// the peer only learns about a stream once something is sent on it
	m.KeepAlive()
	return m, nil
}
