package mux

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"io"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const quicProto = "bpmux-test"

func generateTLSConfig(t *testing.T) *tls.Config {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	fatal(err, t)
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	fatal(err, t)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	fatal(err, t)
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{quicProto},
	}
}

// serveEcho accepts one mux from l and echoes every channel opened on it.
func serveEcho(t *testing.T, l Listener) {
	go func() {
		m, err := l.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		t.Cleanup(func() { m.Close() })
		m.OnPeerChannel(func(ch *Channel) {
			go func() {
				io.Copy(ch, ch)
				ch.CloseWrite()
			}()
		})
		m.Start()
	}()
}

// roundTrip opens a channel on m and checks that what it sends comes back.
func roundTrip(t *testing.T, m *Mux) {
	t.Helper()
	m.Start()
	ch, err := m.Multiplex(&ChannelOptions{HandshakeData: []byte("echo")})
	fatal(err, t)

	msg := "Hello world"
	done := make(chan error, 1)
	go func() {
		_, err := io.WriteString(ch, msg)
		if err == nil {
			err = ch.CloseWrite()
		}
		done <- err
	}()

	got, err := io.ReadAll(ch)
	fatal(err, t)
	fatal(<-done, t)
	require.Equal(t, msg, string(got))

	require.Eventually(t, ch.Removed, waitFor, time.Millisecond)
	m.Close()
}

func TestTransportTCP(t *testing.T) {
	l, err := ListenTCP("127.0.0.1:0", testConfig())
	fatal(err, t)
	defer l.Close()
	serveEcho(t, l)

	m, err := DialTCP(l.Addr().String(), testConfig())
	fatal(err, t)
	roundTrip(t, m)
}

func TestTransportUnix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bpmux.sock")
	l, err := ListenUnix(path, testConfig())
	fatal(err, t)
	defer l.Close()
	serveEcho(t, l)

	m, err := DialUnix(path, testConfig())
	fatal(err, t)
	roundTrip(t, m)
}

func TestTransportWS(t *testing.T) {
	l, err := ListenWS("127.0.0.1:0", testConfig())
	fatal(err, t)
	defer l.Close()
	serveEcho(t, l)

	m, err := DialWS(l.Addr().String(), testConfig())
	fatal(err, t)
	roundTrip(t, m)
}

func TestTransportQUIC(t *testing.T) {
	l, err := ListenQUIC("127.0.0.1:0", generateTLSConfig(t), testConfig())
	fatal(err, t)
	defer l.Close()
	serveEcho(t, l)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	m, err := DialQUIC(ctx, l.Addr().String(), &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{quicProto},
	}, testConfig())
	fatal(err, t)
	roundTrip(t, m)
}

func TestListenIO(t *testing.T) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	l, err := ListenIO(bw, br, testConfig())
	fatal(err, t)
	serveEcho(t, l)

	m, err := DialIO(aw, ar, testConfig())
	fatal(err, t)
	roundTrip(t, m)

	// an io listener has a single mux
	_, err = l.Accept()
	require.ErrorIs(t, err, io.EOF)
}
