package mux

import (
	"errors"
	"io"

	"github.com/armon/go-metrics"

	"github.com/progrium/bpmux-go/mux/frame"
)

// loop reads frames from the carrier until it ends or fails.
func (m *Mux) loop() {
	r := frame.NewReader(m.carrier, m.cfg.ReadPieceSize)
	for {
		p, err := r.Next()
		if err != nil {
			if err != io.EOF {
				m.carrierError(err)
			}
			m.carrierEnded()
			return
		}
		m.onePiece(p)
	}
}

// onePiece routes one piece of a frame: DATA payloads go straight to the
// channel they belong to, anything else is collected into a header.
func (m *Mux) onePiece(p frame.Piece) {
	metrics.IncrCounter(metricBytesReceived, float32(len(p.Data)))

	m.mu.Lock()
	defer m.unlock()

	if m.inData {
		ch := m.reading
		if p.End {
			m.inData = false
			m.reading = nil
		}
		if ch != nil && len(p.Data) > 0 {
			m.receiveData(ch, p.Data)
		}
		return
	}

	if m.headerType < 0 && len(p.Data) > 0 {
		m.headerType = int(p.Data[0])
	}
	m.headerLen += len(p.Data)
	if m.cfg.MaxHeaderSize <= 0 || m.headerLen <= m.cfg.MaxHeaderSize {
		m.header = append(m.header, p.Data...)
	}
	if !p.End {
		return
	}

	hdr, size, typ := m.header, m.headerLen, m.headerType
	m.header = m.header[:0]
	m.headerLen = 0
	m.headerType = -1

	// the payload frame of a DATA header is skipped even when the header
	// itself is rejected
	if typ == int(frame.TypeData) {
		m.inData = true
		m.reading = nil
	}

	if m.cfg.MaxHeaderSize > 0 && size > m.cfg.MaxHeaderSize {
		m.protocolError(&ProtocolError{Type: frame.Type(typ), Err: ErrHeaderTooBig})
		return
	}
	m.processHeader(hdr)
}

func (m *Mux) receiveData(ch *Channel, data []byte) {
	if ch.ended || ch.destroyed {
		return
	}
	if ch.checkReadOverflow && ch.rbuf.len()+len(data) > ch.readHWM {
		m.channelError(ch, ErrTooMuchData)
		return
	}
	ch.rbuf.write(data)
}

func (m *Mux) protocolError(err *ProtocolError) {
	metrics.IncrCounter(metricProtocolErrors, 1)
	m.log.Warn("protocol error", "error", err)
	m.emitError(err)
}

// processHeader dispatches one complete header frame. Must be called with
// the lock held; the lock may be released and reacquired while handshake
// handlers run.
func (m *Mux) processHeader(b []byte) {
	var (
		t   frame.Type
		id  uint32
		msg frame.Message
	)
	msg, err := frame.Decode(b)
	if err != nil {
		var unknown *frame.UnknownTypeError
		if !errors.As(err, &unknown) {
			var typ frame.Type
			if len(b) > 0 {
				typ = frame.Type(b[0])
			}
			m.protocolError(&ProtocolError{Type: typ, Err: err})
			return
		}
		t, id = unknown.Type, unknown.ChannelID
	} else {
		t = msg.Type()
		id, _ = msg.Channel()
	}

	frameReceived(t)
	if m.log.IsTrace() {
		m.log.Trace("recv", "type", t, "frame", msg)
	}

	if t == frame.TypeKeepAlive {
		m.emitSimple(m.h.keepAlive)
		return
	}

	ch := m.table.get(id)
	if ch == nil {
		if t == frame.TypeFinishedStatus {
			// status from a channel we already removed
			return
		}
		if m.isFull() {
			m.log.Debug("dropping peer channel, table full", "channel", id)
			metrics.IncrCounter(metricFull, 1)
			m.emitSimple(m.h.full)
			return
		}
		ch = newChannel(m, id, m.cfg.PeerChannelDefaults)
		m.addChannel(ch)
		m.emitChannel(m.h.peerChannel, ch)
	}

	if !ch.handshakeReceived {
		switch msg := msg.(type) {
		case frame.EndMessage:
			ch.endPending = true
		case frame.ErrorEndMessage:
			ch.errorEndPending = true
		case frame.PreHandshakeMessage:
			m.handleStatus(ch, msg.Free, msg.Seq)
		case frame.HandshakeMessage:
			m.handleHandshake(ch, msg)
		default:
			m.protocolError(&ProtocolError{Channel: id, HasChannel: true, Type: t, Err: errExpectedHandshake})
		}
		return
	}

	switch msg := msg.(type) {
	case frame.EndMessage:
		m.end(ch, false)
	case frame.ErrorEndMessage:
		m.end(ch, true)
	case frame.StatusMessage:
		m.handleStatus(ch, msg.Free, msg.Seq)
	case frame.PreHandshakeMessage:
		m.handleStatus(ch, msg.Free, msg.Seq)
	case frame.DataMessage:
		ch.remoteSeq = msg.Seq
		ch.hasRemoteSeq = true
		m.reading = ch
	default:
		m.protocolError(&ProtocolError{Channel: id, HasChannel: true, Type: t, Err: errUnknownType})
	}
}

func (m *Mux) handleStatus(ch *Channel, free, seq uint32) {
	m.updateRemoteFree(ch, free, seq)
	m.send()
}
