package mux

import (
	"github.com/progrium/bpmux-go/mux/frame"
)

// Handshake is the peer's handshake for a channel as seen by handshake
// handlers.
type Handshake struct {
	Channel *Channel

	// Data is the handshake payload, or the result of
	// Config.ParseHandshakeData when set.
	Data any

	// Raw is the handshake payload as received.
	Raw []byte

	delayable bool
	delayed   *DelayedHandshake
}

// Delay stops the reply handshake from being sent when the handlers
// return. Only a PRE_HANDSHAKE carrying the receive window is sent; the
// returned DelayedHandshake sends the real reply. Delay returns false if
// this side already sent its handshake or the handlers have returned.
func (h *Handshake) Delay() (*DelayedHandshake, bool) {
	ch := h.Channel
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	if !h.delayable {
		return nil, false
	}
	if h.delayed != nil {
		return h.delayed, true
	}
	if ch.handshakeSent || ch.reply != replyAuto {
		return nil, false
	}
	ch.reply = replyDelayed
	h.delayed = &DelayedHandshake{ch: ch}
	return h.delayed, true
}

// DelayedHandshake sends a reply handshake that was held back with
// Handshake.Delay.
type DelayedHandshake struct {
	ch *Channel
}

// Send sends the reply handshake with data as its payload.
func (d *DelayedHandshake) Send(data []byte) error {
	m := d.ch.mux
	m.mu.Lock()
	defer m.unlock()
	if d.ch.reply != replyDelayed || d.ch.handshakeSent {
		return ErrHandshakeSent
	}
	if m.finished || m.ending {
		return ErrFinished
	}
	m.sendHandshake(d.ch, data, true)
	return nil
}

// sendHandshake writes a HANDSHAKE with data when complete is set, or a
// PRE_HANDSHAKE with only the receive window otherwise, then runs the
// scheduler since the channel may now be able to send.
func (m *Mux) sendHandshake(ch *Channel, data []byte, complete bool) {
	if ch.handshakeSent {
		m.send()
		return
	}
	if complete {
		if data == nil {
			data = []byte{}
		}
		ch.handshakeSent = true
		ch.reply = replySent
		ch.autoHandshake = nil
		m.writeMsg(frame.HandshakeMessage{
			ChannelID: ch.id,
			Free:      ch.readFree(),
			Data:      data,
		})
		m.emitSent(m.h.handshakeSent, ch.h.handshakeSent, ch, m.out.Space() > 0)
	} else {
		m.writeMsg(frame.PreHandshakeMessage{
			ChannelID: ch.id,
			Free:      ch.readFree(),
		})
		m.emitSent(m.h.preHandshakeSent, ch.h.preHandshakeSent, ch, m.out.Space() > 0)
	}
	m.send()
}

// flushAutoHandshake sends the handshake Multiplex scheduled for ch if it
// has not gone out yet.
func (m *Mux) flushAutoHandshake(ch *Channel) {
	if ch.autoHandshake == nil || ch.handshakeSent || m.finished {
		return
	}
	m.sendHandshake(ch, ch.autoHandshake, true)
}

func (m *Mux) sendAutoHandshake(ch *Channel) {
	m.mu.Lock()
	m.flushAutoHandshake(ch)
	m.unlock()
}

// handleHandshake processes the peer's HANDSHAKE for ch. It runs the
// handlers without the lock held and returns with the lock held again.
func (m *Mux) handleHandshake(ch *Channel, msg frame.HandshakeMessage) {
	ch.handshakeReceived = true
	if ch.localSeq == 0 {
		m.updateRemoteFree(ch, msg.Free, 0)
	}

	delayable := !ch.handshakeSent && ch.autoHandshake == nil
	if delayable {
		ch.reply = replyAuto
	}
	mhs, chs := m.h.handshake, ch.h.handshake
	parse := m.cfg.ParseHandshakeData
	m.unlock()

	var v any = msg.Data
	if parse != nil {
		parsed, err := parse(msg.Data)
		if err != nil {
			m.mu.Lock()
			if ch.hasErrorHandlers() {
				m.channelError(ch, err)
			}
			m.emitError(err)
			m.unlock()
			parsed = nil
		}
		v = parsed
	}

	hs := &Handshake{
		Channel:   ch,
		Data:      v,
		Raw:       msg.Data,
		delayable: delayable,
	}
	for _, h := range mhs {
		h(ch, hs)
	}
	for _, h := range chs {
		h(hs)
	}

	m.mu.Lock()
	hs.delayable = false
	if !ch.handshakeSent && !m.finished {
		switch ch.reply {
		case replyDelayed:
			m.sendHandshake(ch, nil, false)
		default:
			m.sendHandshake(ch, ch.autoHandshake, true)
		}
	} else {
		m.send()
	}

	if ch.errorEndPending {
		ch.errorEndPending = false
		ch.endPending = false
		m.end(ch, true)
	} else if ch.endPending {
		ch.endPending = false
		m.end(ch, false)
	}
}
