package mux

import (
	"github.com/progrium/bpmux-go/mux/frame"
)

// ChannelOptions configure a channel created by Multiplex, or every
// channel the peer opens when set as Config.PeerChannelDefaults.
type ChannelOptions struct {
	// ID requests a specific channel id instead of an allocated one. If a
	// channel with that id is open, Multiplex returns it.
	ID *uint32 `mapstructure:"id"`

	// HandshakeData is sent with the channel's handshake.
	HandshakeData []byte `mapstructure:"handshake_data"`

	// DelayHandshake stops Multiplex from sending the handshake. Send it
	// later with Channel.SendHandshake.
	DelayHandshake bool `mapstructure:"delay_handshake"`

	// MaxWriteSize caps the payload of a single DATA frame. Zero means
	// no cap beyond the peer's window.
	MaxWriteSize uint32 `mapstructure:"max_write_size"`

	// CheckReadOverflow reports ErrTooMuchData when the peer sends more
	// than ReadHighWaterMark unread bytes. Defaults to true.
	CheckReadOverflow *bool `mapstructure:"check_read_overflow"`

	// ReadHighWaterMark is the receive window advertised to the peer.
	ReadHighWaterMark int `mapstructure:"read_high_water_mark"`
}

type replyState uint8

const (
	replyAuto replyState = iota
	replyDelayed
	replySent
)

// pendingWrite is the one outstanding application write of a channel.
type pendingWrite struct {
	data []byte
	off  int
	done chan error
}

// Channel is one multiplexed duplex byte stream. It is safe for one
// reader and one writer to use it concurrently.
type Channel struct {
	id  uint32
	mux *Mux

	// guarded by mux.mu
	localSeq     uint32
	remoteFree   int64
	maxWriteSize uint32
	pending      *pendingWrite
	want         int64

	handshakeSent     bool
	handshakeReceived bool
	reply             replyState
	autoHandshake     []byte

	finished         bool
	finishAfterWrite bool
	errorEnd         bool
	ended            bool
	removed          bool
	destroyed        bool
	err              error

	endPending      bool
	errorEndPending bool

	remoteSeq    uint32
	hasRemoteSeq bool
	prevStatus   *statusKey

	checkReadOverflow bool
	readHWM           int
	rbuf              *buffer

	h channelHandlers
}

type statusKey struct {
	free uint32
	seq  uint32
}

func newChannel(m *Mux, id uint32, opts ChannelOptions) *Channel {
	ch := &Channel{
		id:                id,
		mux:               m,
		maxWriteSize:      opts.MaxWriteSize,
		checkReadOverflow: true,
		readHWM:           opts.ReadHighWaterMark,
		rbuf:              newBuffer(),
	}
	if opts.CheckReadOverflow != nil {
		ch.checkReadOverflow = *opts.CheckReadOverflow
	}
	if ch.readHWM <= 0 {
		ch.readHWM = DefaultHighWaterMark
	}
	return ch
}

// ID returns the unique identifier of this channel
// within the mux
func (ch *Channel) ID() uint32 {
	return ch.id
}

// Mux returns the Mux the channel belongs to.
func (ch *Channel) Mux() *Mux {
	return ch.mux
}

func (ch *Channel) HandshakeSent() bool {
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	return ch.handshakeSent
}

func (ch *Channel) HandshakeReceived() bool {
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	return ch.handshakeReceived
}

// Removed reports whether the channel has left the channel table.
func (ch *Channel) Removed() bool {
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	return ch.removed
}

// Read reads up to len(data) bytes from the channel. It returns io.EOF
// after the peer ended the channel and ErrPeerError if it ended it with an
// error. Consuming data lets the peer send more.
func (ch *Channel) Read(data []byte) (n int, err error) {
	n, err = ch.rbuf.Read(data)
	if n > 0 {
		ch.SendStatus()
	}
	return n, err
}

// SendStatus tells the peer how much it may send without reading any data.
// Nothing is sent if the peer already knows.
func (ch *Channel) SendStatus() {
	m := ch.mux
	m.mu.Lock()
	m.sendStatus(ch)
	m.unlock()
}

// Write writes len(data) bytes to the channel. It blocks until all of data
// has been handed to the carrier. Only one Write may be in progress at a
// time; a concurrent Write returns ErrWriteInProgress.
func (ch *Channel) Write(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	m := ch.mux
	m.mu.Lock()
	if err := ch.writeErr(); err != nil {
		m.unlock()
		return 0, err
	}
	if ch.pending != nil {
		m.unlock()
		return 0, ErrWriteInProgress
	}
	w := &pendingWrite{data: data, done: make(chan error, 1)}
	ch.pending = w
	m.send()
	m.unlock()

	if err := <-w.done; err != nil {
		m.mu.Lock()
		n := w.off
		m.mu.Unlock()
		return n, err
	}
	return len(data), nil
}

func (ch *Channel) writeErr() error {
	switch {
	case ch.destroyed:
		if ch.err != nil {
			return ch.err
		}
		return ErrClosed
	case ch.finished, ch.finishAfterWrite, ch.mux.finished, ch.mux.ending:
		return ErrFinished
	}
	return nil
}

// CloseWrite signals the end of sending data once any pending write has
// completed. The other side may still send data.
func (ch *Channel) CloseWrite() error {
	m := ch.mux
	m.mu.Lock()
	defer m.unlock()
	m.closeWrite(ch)
	return nil
}

// CloseWriteError is like CloseWrite but ends the channel with ERROR_END,
// which the peer reads as ErrPeerError.
func (ch *Channel) CloseWriteError() error {
	m := ch.mux
	m.mu.Lock()
	defer m.unlock()
	if !ch.finished {
		ch.errorEnd = true
	}
	m.closeWrite(ch)
	return nil
}

// Close destroys the channel. Buffered and future data is dropped, a
// pending write fails with ErrClosed and END is sent if the channel had
// not finished writing. It does not wait for the peer.
func (ch *Channel) Close() error {
	ch.Destroy(nil)
	return nil
}

// Destroy is like Close but reports err to the channel's error handlers
// and returns it from later Read and Write calls.
func (ch *Channel) Destroy(err error) {
	m := ch.mux
	m.mu.Lock()
	m.destroy(ch, err)
	m.unlock()
}

// SendHandshake sends the handshake of a channel created with
// DelayHandshake.
func (ch *Channel) SendHandshake(data []byte) error {
	m := ch.mux
	m.mu.Lock()
	defer m.unlock()
	if ch.handshakeSent {
		return ErrHandshakeSent
	}
	if m.finished || m.ending {
		return ErrFinished
	}
	ch.autoHandshake = nil
	m.sendHandshake(ch, data, true)
	return nil
}

func (m *Mux) closeWrite(ch *Channel) {
	if ch.finished || ch.finishAfterWrite {
		return
	}
	if ch.pending != nil {
		ch.finishAfterWrite = true
		return
	}
	m.finish(ch)
}

// finish ends the write side of ch and tells the peer.
func (m *Mux) finish(ch *Channel) {
	if ch.finished {
		return
	}
	m.flushAutoHandshake(ch)
	ch.finished = true
	if !m.finished {
		if ch.errorEnd {
			m.writeMsg(frame.ErrorEndMessage{ChannelID: ch.id})
		} else {
			m.writeMsg(frame.EndMessage{ChannelID: ch.id})
		}
	}
	m.checkRemove(ch)
}

func (m *Mux) destroy(ch *Channel, err error) {
	if ch.destroyed {
		return
	}
	ch.destroyed = true
	ch.err = err

	if w := ch.pending; w != nil {
		ch.pending = nil
		ch.finishAfterWrite = false
		werr := err
		if werr == nil {
			werr = ErrClosed
		}
		w.done <- werr
	}

	if IsCarrierDone(err) {
		// data that already arrived stays readable
		ch.rbuf.eof(err)
		if ch.hasErrorHandlers() {
			m.channelError(ch, err)
		} else {
			m.log.Debug("channel closed by carrier", "channel", ch.id, "error", err)
		}
	} else {
		rerr := err
		if rerr == nil {
			rerr = ErrClosed
		}
		ch.rbuf.abort(rerr)
		if err != nil {
			m.channelError(ch, err)
		}
	}

	m.finish(ch)
	m.checkRemove(ch)
}

// end marks the read side of ch done after the peer sent END or ERROR_END.
func (m *Mux) end(ch *Channel, peerError bool) {
	if ch.ended {
		return
	}
	ch.ended = true
	m.checkRemove(ch)
	if peerError {
		m.channelError(ch, ErrPeerError)
		ch.rbuf.eof(ErrPeerError)
		return
	}
	ch.rbuf.eof(nil)
}

// checkRemove evicts ch from the table once both of its sides are done.
func (m *Mux) checkRemove(ch *Channel) {
	if !ch.finished || !ch.ended || ch.removed {
		return
	}
	ch.removed = true
	if m.table.remove(ch) {
		m.log.Debug("channel removed", "channel", ch.id)
		m.gaugeChannels()
		m.emitChannel(m.h.removed, ch)
	}
}

// sendStatus sends the receive window of ch to the peer if it changed
// since the last status.
func (m *Mux) sendStatus(ch *Channel) {
	if m.finished || m.ending || !ch.hasRemoteSeq || m.reading == ch {
		return
	}
	free := ch.readHWM - ch.rbuf.len()
	if free < 0 {
		free = 0
	}
	key := statusKey{free: uint32(free), seq: ch.remoteSeq}
	if ch.prevStatus != nil && *ch.prevStatus == key {
		return
	}
	ch.prevStatus = &key
	if !ch.handshakeSent {
		m.writeMsg(frame.PreHandshakeMessage{
			ChannelID: ch.id,
			Free:      key.free,
			Seq:       key.seq,
			HasSeq:    true,
		})
		return
	}
	m.writeMsg(frame.StatusMessage{
		ChannelID: ch.id,
		Free:      key.free,
		Seq:       key.seq,
		Finished:  ch.finished,
	})
}

// readFree is the window advertised in handshakes.
func (ch *Channel) readFree() uint32 {
	free := ch.readHWM - ch.rbuf.len()
	if free < 0 {
		return 0
	}
	return uint32(free)
}
