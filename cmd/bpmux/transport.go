package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/progrium/bpmux-go/mux"
)

// quicProto is the ALPN protocol of bpmux over QUIC.
const quicProto = "bpmux"

// target is a carrier address such as tcp://127.0.0.1:9000.
type target struct {
	scheme string
	addr   string
}

func (t target) String() string {
	return t.scheme + "://" + t.addr
}

func parseTarget(s string) (target, error) {
	u, err := url.Parse(s)
	if err != nil {
		return target{}, err
	}
	t := target{scheme: u.Scheme}
	switch u.Scheme {
	case "tcp", "quic":
		t.addr = u.Host
	case "ws", "unix":
		t.addr = u.Host + u.Path
	case "stdio":
		return t, nil
	default:
		return target{}, fmt.Errorf("unsupported transport: %q", u.Scheme)
	}
	if t.addr == "" {
		return target{}, fmt.Errorf("missing address in %q", s)
	}
	return t, nil
}

func dial(ctx context.Context, t target, cfg *mux.Config) (*mux.Mux, error) {
	switch t.scheme {
	case "tcp":
		return mux.DialTCP(t.addr, cfg)
	case "unix":
		return mux.DialUnix(t.addr, cfg)
	case "ws":
		return mux.DialWS(t.addr, cfg)
	case "quic":
		return mux.DialQUIC(ctx, t.addr, &tls.Config{
			InsecureSkipVerify: true,
			NextProtos:         []string{quicProto},
		}, cfg)
	case "stdio":
		return mux.DialStdio(cfg)
	}
	return nil, fmt.Errorf("unsupported transport: %q", t.scheme)
}

func listen(t target, cfg *mux.Config) (mux.Listener, error) {
	switch t.scheme {
	case "tcp":
		return mux.ListenTCP(t.addr, cfg)
	case "unix":
		return mux.ListenUnix(t.addr, cfg)
	case "ws":
		// every path is served
		host, _, _ := strings.Cut(t.addr, "/")
		return mux.ListenWS(host, cfg)
	case "quic":
		tlsConf, err := selfSignedTLS()
		if err != nil {
			return nil, err
		}
		return mux.ListenQUIC(t.addr, tlsConf, cfg)
	case "stdio":
		return mux.ListenStdio(cfg)
	}
	return nil, fmt.Errorf("unsupported transport: %q", t.scheme)
}

// selfSignedTLS returns a server config with a throwaway certificate.
// Clients of the CLI skip verification.
func selfSignedTLS() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{quicProto},
	}, nil
}
