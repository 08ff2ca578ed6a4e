package mux

import (
	"io"
	"net"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ioListener wraps a single carrier to use as a listener.
type ioListener struct {
	carrier Carrier
	cfg     *Config

	mu       sync.Mutex
	accepted bool
}

// Accept returns a mux over the wrapped carrier the first time and
// io.EOF after that.
func (l *ioListener) Accept() (*Mux, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.accepted {
		return nil, io.EOF
	}
	l.accepted = true
	return New(l.carrier, l.cfg), nil
}

func (l *ioListener) Close() error {
	return nil
}

func (l *ioListener) Addr() net.Addr {
	return nil
}

// ioduplex joins a WriteCloser and a ReadCloser into a carrier. Closing
// the writer is its half-close.
type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

func (d *ioduplex) CloseWrite() error {
	return d.WriteCloser.Close()
}

func (d *ioduplex) Close() error {
	var err error
	if cerr := d.WriteCloser.Close(); cerr != nil {
		err = multierror.Append(err, cerr)
	}
	if cerr := d.ReadCloser.Close(); cerr != nil {
		err = multierror.Append(err, cerr)
	}
	return err
}

// ListenIO returns a Listener that gives one mux based on separate
// WriteCloser and ReadClosers.
func ListenIO(out io.WriteCloser, in io.ReadCloser, cfg *Config) (Listener, error) {
	return &ioListener{
		carrier: &ioduplex{out, in},
		cfg:     cfg,
	}, nil
}

// ListenStdio is a convenience for calling ListenIO with Stdout and Stdin.
func ListenStdio(cfg *Config) (Listener, error) {
	return ListenIO(os.Stdout, os.Stdin, cfg)
}
