package mux

import "net"

// A Listener is similar to a net.Listener but returns connections wrapped as
// muxes. Accepted muxes are not started.
type Listener interface {
	// Close closes the listener.
	// Any blocked Accept operations will be unblocked and return errors.
	Close() error

	// Accept waits for and returns the next incoming mux.
	Accept() (*Mux, error)

	// Addr returns the listener's network address if available.
	Addr() net.Addr
}
