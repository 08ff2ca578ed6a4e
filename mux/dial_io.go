package mux

import (
	"io"
	"os"
)

// DialIO returns a Mux using a WriteCloser and ReadCloser as its carrier.
func DialIO(out io.WriteCloser, in io.ReadCloser, cfg *Config) (*Mux, error) {
	return New(&ioduplex{out, in}, cfg), nil
}

// DialStdio returns a Mux using Stdout and Stdin as its carrier.
func DialStdio(cfg *Config) (*Mux, error) {
	return DialIO(os.Stdout, os.Stdin, cfg)
}
