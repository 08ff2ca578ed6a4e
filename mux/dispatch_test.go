package mux

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/progrium/bpmux-go/mux/frame"
)

func TestHeaderTooBig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHeaderSize = 64
	cfg.ReadPieceSize = 16
	m, p := newRawPair(t, cfg)
	errs := &errorLog{}
	m.OnError(errs.add)
	handshakes := &counter{}
	m.OnHandshake(func(*Channel, *Handshake) { handshakes.inc() })
	chans := peerChannels(m)

	p.send(frameHandshake(1, 100, bytes.Repeat([]byte("x"), 100)))
	p.sync(m)
	errs.waitError(t, func(err error) bool { return errors.Is(err, ErrHeaderTooBig) })
	require.Equal(t, 0, handshakes.get())
	_, ok := m.Channel(1)
	require.False(t, ok)

	// exactly at the limit is fine and the mux keeps working
	p.send(frameHandshake(1, 100, bytes.Repeat([]byte("x"), 64-9)))
	require.Equal(t, uint32(1), nextChannel(t, chans).ID())
	p.sync(m)
	require.Equal(t, 1, handshakes.get())
}

func TestReadOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.PeerChannelDefaults.ReadHighWaterMark = 8
	m, p := newRawPair(t, cfg)
	errs := &errorLog{}
	m.OnError(errs.add)
	chans := peerChannels(m)

	p.send(frameHandshake(1, 100, nil))
	ch := nextChannel(t, chans)
	msg, _ := p.next()
	require.Equal(t, frameHandshake(1, 8, []byte{}), msg)

	p.send(frameData(1, 6))
	p.sendRaw([]byte("123456"))
	p.send(frameData(1, 12))
	p.sendRaw([]byte("789abc"))
	p.sync(m)
	errs.waitError(t, func(err error) bool { return errors.Is(err, ErrTooMuchData) })

	// data beyond the window was dropped
	buf := make([]byte, 16)
	n, err := ch.Read(buf)
	fatal(err, t)
	require.Equal(t, "123456", string(buf[:n]))

	// the read reports the window to the peer
	msg, _ = p.next()
	require.Equal(t, frameStatus(1, 8, 12), msg)
}

func TestReadOverflowUnchecked(t *testing.T) {
	off := false
	cfg := testConfig()
	cfg.PeerChannelDefaults.ReadHighWaterMark = 4
	cfg.PeerChannelDefaults.CheckReadOverflow = &off
	m, p := newRawPair(t, cfg)
	chans := peerChannels(m)

	p.send(frameHandshake(1, 100, nil))
	ch := nextChannel(t, chans)
	p.send(frameData(1, 10))
	p.sendRaw([]byte("0123456789"))
	p.send(frame.EndMessage{ChannelID: 1})

	buf := make([]byte, 10)
	n, err := ch.Read(buf)
	fatal(err, t)
	require.Equal(t, 10, n)
}

func TestProtocolErrors(t *testing.T) {
	m, p := newRawPair(t, nil)
	errs := &errorLog{}
	m.OnError(errs.add)
	chans := peerChannels(m)

	// short status frame
	p.sendRaw([]byte{byte(frame.TypeStatus), 0, 0, 0, 1})
	err := errs.waitError(t, func(err error) bool {
		var short *frame.ShortFrameError
		return errors.As(err, &short)
	})
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)

	// anything but a handshake on a new channel
	p.send(frameStatus(1, 10, 0))
	errs.waitError(t, func(err error) bool { return errors.Is(err, errExpectedHandshake) })
	ch := nextChannel(t, chans)
	require.False(t, ch.HandshakeReceived())

	// unknown type after the handshake
	p.send(frameHandshake(1, 10, nil))
	p.sendRaw([]byte{42, 0, 0, 0, 1})
	err = errs.waitError(t, func(err error) bool { return errors.Is(err, errUnknownType) })
	require.ErrorAs(t, err, &perr)
	require.Equal(t, uint32(1), perr.Channel)
	require.Equal(t, frame.Type(42), perr.Type)

	// DATA before the handshake has its payload skipped
	p.send(frameData(2, 3))
	p.sendRaw([]byte{byte(frame.TypeKeepAlive), 0, 0})
	p.sync(m)
	ch2 := nextChannel(t, chans)
	require.Equal(t, uint32(2), ch2.ID())

	// an empty frame is too short for any type
	p.sendRaw(nil)
	p.sync(m)
	require.GreaterOrEqual(t, len(errs.list()), 5)
}

func TestFinishedStatusUnknownChannel(t *testing.T) {
	m, p := newRawPair(t, nil)
	created := &counter{}
	m.OnPeerChannel(func(*Channel) { created.inc() })
	m.Start()

	p.send(frame.StatusMessage{ChannelID: 9, Free: 10, Seq: 4, Finished: true})
	p.sync(m)
	require.Equal(t, 0, created.get())
	require.Empty(t, m.Channels())
}

func TestEndBeforeHandshake(t *testing.T) {
	m, p := newRawPair(t, nil)
	chans := peerChannels(m)

	p.send(frame.ErrorEndMessage{ChannelID: 4})
	ch := nextChannel(t, chans)
	chErrs := &errorLog{}
	ch.OnError(chErrs.add)
	p.sync(m)

	p.send(frameHandshake(4, 10, nil))
	chErrs.waitError(t, func(err error) bool { return errors.Is(err, ErrPeerError) })
	_, err := ch.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrPeerError)
}

func TestEndTwice(t *testing.T) {
	m, p := newRawPair(t, nil)
	removed := &counter{}
	m.OnRemoved(func(*Channel) { removed.inc() })
	chans := peerChannels(m)

	p.send(frameHandshake(5, 100, nil))
	ch := nextChannel(t, chans)
	p.next()
	fatal(ch.CloseWrite(), t)
	msg, _ := p.next()
	require.Equal(t, frame.EndMessage{ChannelID: 5}, msg)

	p.send(frame.EndMessage{ChannelID: 5})
	p.sync(m)
	require.Equal(t, 1, removed.get())
	require.True(t, ch.Removed())

	p.send(frame.EndMessage{ChannelID: 5})
	p.sync(m)
	require.Equal(t, 1, removed.get())
}

func TestStatusSuppressed(t *testing.T) {
	m, p := newRawPair(t, nil)
	chans := peerChannels(m)

	p.send(frameHandshake(1, 100, nil))
	ch := nextChannel(t, chans)
	p.next()

	// no status before any data arrived
	ch.SendStatus()

	p.send(frameData(1, 4))
	p.sendRaw([]byte("ping"))
	buf := make([]byte, 4)
	_, err := ch.Read(buf)
	fatal(err, t)
	msg, _ := p.next()
	require.Equal(t, frameStatus(1, DefaultHighWaterMark, 4), msg)

	// nothing changed, so nothing is sent
	ch.SendStatus()
	fatal(ch.CloseWrite(), t)
	msg, _ = p.next()
	require.Equal(t, frame.EndMessage{ChannelID: 1}, msg)

	// after finishing the status says so
	p.send(frameData(1, 5))
	p.sendRaw([]byte("!"))
	_, err = ch.Read(buf)
	fatal(err, t)
	msg, _ = p.next()
	require.Equal(t, frame.StatusMessage{ChannelID: 1, Free: DefaultHighWaterMark, Seq: 5, Finished: true}, msg)
}

func TestCoalesceWrites(t *testing.T) {
	cfg := testConfig()
	cfg.CoalesceWrites = true
	m, p := newRawPair(t, cfg)
	chans := peerChannels(m)

	p.send(frameHandshake(1, 100, nil))
	ch := nextChannel(t, chans)
	p.next()

	go ch.Write([]byte("coalesced"))
	msg, payload := p.next()
	require.Equal(t, frameData(1, 9), msg)
	require.Equal(t, "coalesced", string(payload))
}

func TestMaxWriteSize(t *testing.T) {
	cfg := testConfig()
	cfg.PeerChannelDefaults.MaxWriteSize = 4
	m, p := newRawPair(t, cfg)
	chans := peerChannels(m)

	p.send(frameHandshake(1, 100, nil))
	ch := nextChannel(t, chans)
	p.next()

	go ch.Write([]byte("abcdef"))
	msg, payload := p.next()
	require.Equal(t, frameData(1, 4), msg)
	require.Equal(t, "abcd", string(payload))

	p.send(frameStatus(1, 100, 4))
	msg, payload = p.next()
	require.Equal(t, frameData(1, 6), msg)
	require.Equal(t, "ef", string(payload))
}
