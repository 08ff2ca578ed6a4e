package mux

import (
	"net"
)

func dialNet(proto, addr string, cfg *Config) (*Mux, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return New(conn, cfg), nil
}

// DialTCP returns a Mux over a TCP connection.
func DialTCP(addr string, cfg *Config) (*Mux, error) {
	return dialNet("tcp", addr, cfg)
}

// DialUnix returns a Mux over a Unix domain socket.
func DialUnix(path string, cfg *Config) (*Mux, error) {
	return dialNet("unix", path, cfg)
}
