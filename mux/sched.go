package mux

import (
	"sort"

	"github.com/armon/go-metrics"

	"github.com/progrium/bpmux-go/mux/frame"
)

// send runs the scheduler. A call made while a pass is running is folded
// into that pass. Must be called with the Mux lock held.
func (m *Mux) send() {
	if m.sending {
		m.sendRequested = true
		return
	}
	m.sending = true
	for {
		m.sendRequested = false
		m.schedule()
		if !m.sendRequested {
			break
		}
	}
	m.sending = false
}

// schedule writes pending channel data while the carrier has room. Each
// round shares the room equally between the channels able to send,
// serving the smallest demands first so their leftover share goes to the
// channels that want more.
func (m *Mux) schedule() {
	for !m.finished && !m.ending {
		space := int64(m.out.Space())
		if space <= 0 {
			return
		}

		eligible := m.eligible[:0]
		for _, ch := range m.table.channels {
			w := ch.pending
			if w == nil || ch.remoteFree <= 0 || !ch.handshakeSent {
				continue
			}
			ch.want = int64(len(w.data) - w.off)
			if ch.remoteFree < ch.want {
				ch.want = ch.remoteFree
			}
			eligible = append(eligible, ch)
		}
		m.eligible = eligible
		if len(eligible) == 0 {
			return
		}

		sort.Slice(eligible, func(i, j int) bool {
			if eligible[i].want != eligible[j].want {
				return eligible[i].want < eligible[j].want
			}
			return eligible[i].id < eligible[j].id
		})
		metrics.AddSample(metricPassChannels, float32(len(eligible)))

		if m.cfg.CoalesceWrites {
			m.out.Cork()
		}
		n := int64(len(eligible))
		for _, ch := range eligible {
			share := space / n
			if share < 1 {
				share = 1
			}
			size := ch.want
			if share < size {
				size = share
			}
			m.writeData(ch, int(size))
			space -= size
			if space < 0 {
				space = 0
			}
			n--
		}
		if m.cfg.CoalesceWrites {
			m.out.Uncork()
		}
		for i := range eligible {
			eligible[i] = nil
		}
	}
}

// writeData writes the next size bytes of the pending write of ch as a
// DATA header and its payload.
func (m *Mux) writeData(ch *Channel, size int) {
	w := ch.pending
	ch.localSeq += uint32(size)
	ch.remoteFree -= int64(size)
	m.writeMsg(frame.DataMessage{ChannelID: ch.id, Seq: ch.localSeq})
	m.writePayload(w.data[w.off : w.off+size])
	w.off += size
	if w.off < len(w.data) {
		return
	}
	ch.pending = nil
	w.done <- nil
	if ch.finishAfterWrite {
		ch.finishAfterWrite = false
		m.finish(ch)
	}
}

// updateRemoteFree applies a window update from the peer. seq is the last
// sequence number the peer had received when it sent the update.
func (m *Mux) updateRemoteFree(ch *Channel, free, seq uint32) {
	if ch.maxWriteSize > 0 && free > ch.maxWriteSize {
		free = ch.maxWriteSize
	}
	rf := int64(seq) + int64(free) - int64(ch.localSeq)
	if ch.localSeq < seq {
		// localSeq wrapped since the peer saw seq
		rf -= 1 << 32
	}
	ch.remoteFree = rf
}
