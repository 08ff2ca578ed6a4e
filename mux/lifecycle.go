package mux

import (
	"github.com/progrium/bpmux-go/mux/frame"
)

// End half-closes the carrier once everything queued has been written.
// Channels that have not finished are destroyed with a CarrierDoneError.
func (m *Mux) End() error {
	m.mu.Lock()
	if m.ending {
		m.mu.Unlock()
		return nil
	}
	m.ending = true
	m.stopKeepAlive()
	m.mu.Unlock()
	m.out.End()
	return nil
}

// Close closes the carrier. Both finish and end happen before Close returns.
func (m *Mux) Close() error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	m.ending = true
	m.stopKeepAlive()
	m.mu.Unlock()

	m.out.Close()
	err := m.carrier.Close()
	m.carrierFinished()
	m.carrierEnded()
	return err
}

// closeCarrierWrite is called by the outbox once it has been flushed
// after End.
func (m *Mux) closeCarrierWrite() error {
	if cw, ok := m.carrier.(closeWriter); ok {
		return cw.CloseWrite()
	}
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()
	return m.carrier.Close()
}

func (m *Mux) writerDone(err error) {
	if err != nil {
		m.carrierError(err)
	}
	m.carrierFinished()
}

func (m *Mux) drained() {
	m.mu.Lock()
	defer m.unlock()
	m.keepAlivePaused = false
	m.emitSimple(m.h.drain)
	m.send()
}

// carrierError reports err on the Mux and on every channel listening for
// errors.
func (m *Mux) carrierError(err error) {
	m.mu.Lock()
	defer m.unlock()
	if m.closing {
		return
	}
	if m.err == nil {
		m.err = err
	}
	m.log.Error("carrier error", "error", err)
	for _, ch := range m.table.channels {
		if ch.hasErrorHandlers() {
			m.channelError(ch, err)
		}
	}
	m.emitError(err)
}

// carrierFinished handles the write side of the carrier going away.
func (m *Mux) carrierFinished() {
	m.mu.Lock()
	defer m.unlock()
	if m.finished {
		return
	}
	m.finished = true
	m.ending = true
	m.stopKeepAlive()
	for _, ch := range m.table.list() {
		if !ch.finished {
			m.destroy(ch, &CarrierDoneError{})
		}
	}
	m.log.Debug("carrier finished")
	m.emitSimple(m.h.finish)
	m.checkClosed()
}

// carrierEnded handles the read side of the carrier going away.
func (m *Mux) carrierEnded() {
	m.mu.Lock()
	defer m.unlock()
	if m.ended {
		return
	}
	m.ended = true
	m.inData = false
	m.reading = nil
	for _, ch := range m.table.list() {
		if ch.ended {
			continue
		}
		m.destroy(ch, &CarrierDoneError{Ended: true})
		ch.ended = true
		m.checkRemove(ch)
	}
	m.log.Debug("carrier ended")
	m.emitSimple(m.h.end)
	m.checkClosed()
}

func (m *Mux) checkClosed() {
	if !m.finished || !m.ended || m.closed {
		return
	}
	m.closed = true
	close(m.done)
	m.log.Debug("closed")
	m.emitSimple(m.h.close)
}

// startKeepAlive must be called with the lock held.
func (m *Mux) startKeepAlive() {
	if m.cfg.KeepAliveInterval <= 0 || m.ending || m.finished {
		return
	}
	t := m.cfg.Clock.Ticker(m.cfg.KeepAliveInterval)
	stop := make(chan struct{})
	m.keepAliveStop = stop
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.sendKeepAlive(false)
			case <-stop:
				return
			}
		}
	}()
}

func (m *Mux) stopKeepAlive() {
	if m.keepAliveStop != nil {
		close(m.keepAliveStop)
		m.keepAliveStop = nil
	}
}

// KeepAlive sends a KEEP_ALIVE frame now.
func (m *Mux) KeepAlive() {
	m.sendKeepAlive(true)
}

// sendKeepAlive skips the periodic keep-alive while the carrier has not
// drained since the last one.
func (m *Mux) sendKeepAlive(force bool) {
	m.mu.Lock()
	defer m.unlock()
	if m.ending || m.finished {
		return
	}
	if !force && m.keepAlivePaused {
		return
	}
	m.writeMsg(frame.KeepAliveMessage{})
	if m.out.Space() <= 0 {
		m.keepAlivePaused = true
	}
}
