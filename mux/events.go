package mux

// muxHandlers are the callbacks registered on a Mux. The slices only ever
// grow, so a copy of a slice header taken under the lock stays valid.
type muxHandlers struct {
	peerChannel      []func(*Channel)
	handshake        []func(*Channel, *Handshake)
	handshakeSent    []func(*Channel, bool)
	preHandshakeSent []func(*Channel, bool)
	drain            []func()
	end              []func()
	finish           []func()
	close            []func()
	full             []func()
	removed          []func(*Channel)
	keepAlive        []func()
	err              []func(error)
}

type channelHandlers struct {
	err              []func(error)
	handshake        []func(*Handshake)
	handshakeSent    []func(bool)
	preHandshakeSent []func(bool)
}

// emit queues fn to run once the Mux lock is released. Must be called with
// the lock held.
func (m *Mux) emit(fn func()) {
	m.queue = append(m.queue, fn)
}

// unlock releases the Mux lock and then runs the queued notifications in
// order.
func (m *Mux) unlock() {
	q := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, fn := range q {
		fn()
	}
}

// OnPeerChannel registers a handler called when the peer opens a channel,
// before its handshake is processed.
func (m *Mux) OnPeerChannel(h func(*Channel)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.peerChannel = append(m.h.peerChannel, h)
}

// OnHandshake registers a handler called when a channel receives the
// peer's handshake. Mux handlers run before the channel's own handlers.
func (m *Mux) OnHandshake(h func(*Channel, *Handshake)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.handshake = append(m.h.handshake, h)
}

// OnHandshakeSent registers a handler called after a HANDSHAKE frame is
// queued. The flag reports whether the carrier took it without reaching
// its high-water mark.
func (m *Mux) OnHandshakeSent(h func(*Channel, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.handshakeSent = append(m.h.handshakeSent, h)
}

// OnPreHandshakeSent is like OnHandshakeSent for PRE_HANDSHAKE frames.
func (m *Mux) OnPreHandshakeSent(h func(*Channel, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.preHandshakeSent = append(m.h.preHandshakeSent, h)
}

// OnDrain registers a handler called when the carrier outbox drops back
// below its high-water mark.
func (m *Mux) OnDrain(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.drain = append(m.h.drain, h)
}

// OnEnd registers a handler called when the read side of the carrier ends.
func (m *Mux) OnEnd(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.end = append(m.h.end, h)
}

// OnFinish registers a handler called when the write side of the carrier
// is done.
func (m *Mux) OnFinish(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.finish = append(m.h.finish, h)
}

// OnClose registers a handler called once the carrier has both finished
// and ended.
func (m *Mux) OnClose(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.close = append(m.h.close, h)
}

// OnFull registers a handler called when a channel cannot be created
// because the table is full.
func (m *Mux) OnFull(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.full = append(m.h.full, h)
}

// OnRemoved registers a handler called once per channel when it leaves
// the channel table.
func (m *Mux) OnRemoved(h func(*Channel)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.removed = append(m.h.removed, h)
}

// OnKeepAlive registers a handler called for every KEEP_ALIVE frame received.
func (m *Mux) OnKeepAlive(h func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.keepAlive = append(m.h.keepAlive, h)
}

// OnError registers a handler for mux level errors: protocol errors,
// carrier errors and channel errors nobody listens for on the channel.
func (m *Mux) OnError(h func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h.err = append(m.h.err, h)
}

func (m *Mux) emitError(err error) {
	hs := m.h.err
	m.emit(func() {
		for _, h := range hs {
			h(err)
		}
	})
}

func (m *Mux) emitSimple(hs []func()) {
	m.emit(func() {
		for _, h := range hs {
			h()
		}
	})
}

func (m *Mux) emitChannel(hs []func(*Channel), ch *Channel) {
	m.emit(func() {
		for _, h := range hs {
			h(ch)
		}
	})
}

func (m *Mux) emitSent(mhs []func(*Channel, bool), chs []func(bool), ch *Channel, ok bool) {
	m.emit(func() {
		for _, h := range mhs {
			h(ch, ok)
		}
		for _, h := range chs {
			h(ok)
		}
	})
}

// OnError registers a handler for errors on this channel. While a channel
// has error handlers, its errors are not reported on the Mux.
func (ch *Channel) OnError(h func(error)) {
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	ch.h.err = append(ch.h.err, h)
}

// OnHandshake registers a handler called when the peer's handshake for
// this channel arrives.
func (ch *Channel) OnHandshake(h func(*Handshake)) {
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	ch.h.handshake = append(ch.h.handshake, h)
}

func (ch *Channel) OnHandshakeSent(h func(bool)) {
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	ch.h.handshakeSent = append(ch.h.handshakeSent, h)
}

func (ch *Channel) OnPreHandshakeSent(h func(bool)) {
	ch.mux.mu.Lock()
	defer ch.mux.mu.Unlock()
	ch.h.preHandshakeSent = append(ch.h.preHandshakeSent, h)
}

// hasErrorHandlers must be called with the Mux lock held.
func (ch *Channel) hasErrorHandlers() bool {
	return len(ch.h.err) > 0
}

// channelError delivers err to the channel's error handlers, or to the
// Mux when the channel has none.
func (m *Mux) channelError(ch *Channel, err error) {
	if !ch.hasErrorHandlers() {
		m.emitError(err)
		return
	}
	hs := ch.h.err
	m.emit(func() {
		for _, h := range hs {
			h(err)
		}
	})
}
