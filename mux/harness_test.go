package mux

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/progrium/bpmux-go/mux/frame"
)

func fatal(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

const waitFor = 5 * time.Second

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.KeepAliveInterval = 0
	return cfg
}

// newPair returns two started muxes connected by pipes. Channels opened
// by b are allocated from the high half of the id space.
func newPair(t *testing.T, cfgA, cfgB *Config) (*Mux, *Mux) {
	t.Helper()
	if cfgA == nil {
		cfgA = testConfig()
	}
	if cfgB == nil {
		cfgB = testConfig()
		cfgB.HighChannels = true
	}
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a, err := DialIO(aw, ar, cfgA)
	fatal(err, t)
	b, err := DialIO(bw, br, cfgB)
	fatal(err, t)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// peerChannels starts m and returns a channel receiving every channel its
// peer opens.
func peerChannels(m *Mux) <-chan *Channel {
	chans := make(chan *Channel, 16)
	m.OnPeerChannel(func(ch *Channel) {
		chans <- ch
	})
	m.Start()
	return chans
}

func nextChannel(t *testing.T, chans <-chan *Channel) *Channel {
	t.Helper()
	select {
	case ch := <-chans:
		return ch
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for peer channel")
		return nil
	}
}

// errorLog collects errors reported through a handler.
type errorLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorLog) add(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *errorLog) list() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}

// waitError waits until an error matching target has been collected.
func (l *errorLog) waitError(t *testing.T, match func(error) bool) error {
	t.Helper()
	var found error
	require.Eventually(t, func() bool {
		for _, err := range l.list() {
			if match(err) {
				found = err
				return true
			}
		}
		return false
	}, waitFor, time.Millisecond)
	return found
}

// counter counts calls to a handler.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// rawPeer speaks the wire protocol by hand on the other end of a mux.
type rawPeer struct {
	t   *testing.T
	enc *frame.Encoder
	r   *frame.Reader
	out io.WriteCloser
}

// newRawPair returns a started mux and a raw peer connected to it.
func newRawPair(t *testing.T, cfg *Config) (*Mux, *rawPeer) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	mr, pw := io.Pipe()
	pr, mw := io.Pipe()
	m, err := DialIO(mw, mr, cfg)
	fatal(err, t)
	p := &rawPeer{
		t:   t,
		enc: frame.NewEncoder(pw),
		r:   frame.NewReader(pr, 0),
		out: pw,
	}
	t.Cleanup(func() {
		m.Close()
		pw.Close()
		pr.Close()
	})
	return m, p
}

func (p *rawPeer) send(msg frame.Message) {
	p.t.Helper()
	fatal(p.enc.Encode(msg), p.t)
}

func (p *rawPeer) sendRaw(body []byte) {
	p.t.Helper()
	fatal(p.enc.EncodePayload(body), p.t)
}

func (p *rawPeer) readFrame() []byte {
	p.t.Helper()
	var body []byte
	for {
		piece, err := p.r.Next()
		fatal(err, p.t)
		body = append(body, piece.Data...)
		if piece.End {
			return body
		}
	}
}

// next returns the next message from the mux, skipping keep-alives. For
// DATA messages the payload is returned too.
func (p *rawPeer) next() (frame.Message, []byte) {
	p.t.Helper()
	for {
		msg, err := frame.Decode(p.readFrame())
		fatal(err, p.t)
		switch msg.(type) {
		case frame.KeepAliveMessage:
			continue
		case frame.DataMessage:
			return msg, p.readFrame()
		}
		return msg, nil
	}
}

// sync makes sure the mux processed everything sent before it.
func (p *rawPeer) sync(m *Mux) {
	p.t.Helper()
	seen := make(chan struct{}, 1)
	m.OnKeepAlive(func() {
		select {
		case seen <- struct{}{}:
		default:
		}
	})
	p.send(frame.KeepAliveMessage{})
	select {
	case <-seen:
	case <-time.After(waitFor):
		p.t.Fatal("timed out waiting for keep-alive")
	}
}

func frameHandshake(id, free uint32, data []byte) frame.HandshakeMessage {
	return frame.HandshakeMessage{ChannelID: id, Free: free, Data: data}
}

func frameStatus(id, free, seq uint32) frame.StatusMessage {
	return frame.StatusMessage{ChannelID: id, Free: free, Seq: seq}
}

func frameData(id, seq uint32) frame.DataMessage {
	return frame.DataMessage{ChannelID: id, Seq: seq}
}
