package mux

import (
	"io"
	"sync"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/rs/xid"

	"github.com/progrium/bpmux-go/mux/frame"
)

// Carrier is the byte stream a Mux runs over. If it also has a
// CloseWrite method, as TCP and Unix connections do, Mux.End half-closes
// it; otherwise ending the Mux closes it fully.
type Carrier interface {
	io.Reader
	io.Writer
	io.Closer
}

type closeWriter interface {
	CloseWrite() error
}

// Mux multiplexes channels over a carrier. Every channel has its own flow
// control window, so a channel whose reader stalls does not hold up the
// others.
type Mux struct {
	id      string
	cfg     Config
	log     hclog.Logger
	carrier Carrier

	out *outbox
	enc *frame.Encoder

	startOnce sync.Once
	wg        sync.WaitGroup
	done      chan struct{}

	mu    sync.Mutex
	queue []func()
	h     muxHandlers

	table *table
	alloc *allocator

	sending       bool
	sendRequested bool
	eligible      []*Channel

	// header being read and the channel receiving the current DATA payload
	header     []byte
	headerLen  int
	headerType int
	inData     bool
	reading    *Channel

	closing  bool
	ending   bool
	finished bool
	ended    bool
	closed   bool
	err      error

	keepAliveStop   chan struct{}
	keepAlivePaused bool
}

// New returns a Mux over carrier. A nil cfg uses DefaultConfig. Frames are
// written right away but none are read until Start is called, which leaves
// room to register handlers first.
func New(carrier Carrier, cfg *Config) *Mux {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := cfg.withDefaults()
	id := xid.New().String()
	m := &Mux{
		id:         id,
		cfg:        c,
		log:        c.Logger.Named("bpmux").With("mux", id),
		carrier:    carrier,
		done:       make(chan struct{}),
		table:      newTable(),
		alloc:      newAllocator(c.HighChannels),
		headerType: -1,
	}
	m.out = newOutbox(carrier, c.HighWaterMark, m.closeCarrierWrite)
	m.out.onDrain = m.drained
	m.out.onDone = m.writerDone
	m.enc = frame.NewEncoder(m.out)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.out.run()
	}()
	return m
}

// Start begins reading from the carrier and sending keep-alives. Calling it
// more than once has no effect.
func (m *Mux) Start() {
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.startKeepAlive()
		m.mu.Unlock()
		go m.loop()
	})
}

// ID returns a unique id for this Mux, used in its log lines.
func (m *Mux) ID() string {
	return m.id
}

// Multiplex opens a new channel. Unless opts.DelayHandshake is set, its
// handshake is sent right after Multiplex returns. A nil opts uses the
// defaults.
func (m *Mux) Multiplex(opts *ChannelOptions) (*Channel, error) {
	if opts == nil {
		opts = &ChannelOptions{}
	}
	m.mu.Lock()
	defer m.unlock()

	if m.isFull() {
		metrics.IncrCounter(metricFull, 1)
		m.emitSimple(m.h.full)
		return nil, ErrFull
	}
	switch {
	case m.closing:
		return nil, ErrClosed
	case m.ending || m.finished:
		return nil, ErrFinished
	case m.ended:
		return nil, ErrEnded
	}

	var id uint32
	if opts.ID != nil {
		id = *opts.ID
		if ch := m.table.get(id); ch != nil {
			return ch, nil
		}
	} else {
		var err error
		id, err = m.alloc.next(func(id uint32) bool {
			return m.table.get(id) != nil
		})
		if err != nil {
			metrics.IncrCounter(metricFull, 1)
			m.emitSimple(m.h.full)
			return nil, err
		}
	}

	ch := newChannel(m, id, *opts)
	m.addChannel(ch)
	if !opts.DelayHandshake {
		ch.autoHandshake = append([]byte{}, opts.HandshakeData...)
		go m.sendAutoHandshake(ch)
	}
	return ch, nil
}

// Channels returns the open channels.
func (m *Mux) Channels() []*Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.list()
}

// Channel returns the open channel with the given id.
func (m *Mux) Channel(id uint32) (*Channel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := m.table.get(id)
	return ch, ch != nil
}

// Wait blocks until the carrier has finished and ended, and returns the
// first carrier error, if any.
func (m *Mux) Wait() error {
	<-m.done
	m.wg.Wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mux) isFull() bool {
	return m.cfg.MaxOpen > 0 && m.table.size() >= m.cfg.MaxOpen
}

func (m *Mux) addChannel(ch *Channel) {
	m.table.add(ch)
	m.log.Debug("channel created", "channel", ch.id)
	m.gaugeChannels()
}

func (m *Mux) gaugeChannels() {
	metrics.SetGauge(metricChannelsOpen, float32(m.table.size()))
}

// writeMsg queues msg on the carrier. Must be called with the lock held so
// frames keep their order.
func (m *Mux) writeMsg(msg frame.Message) {
	if m.log.IsTrace() {
		m.log.Trace("send", "frame", msg)
	}
	if err := m.enc.Encode(msg); err != nil {
		m.log.Debug("frame dropped", "frame", msg, "error", err)
		return
	}
	frameSent(msg.Type(), len(msg.Bytes()))
}

func (m *Mux) writePayload(data []byte) {
	if err := m.enc.EncodePayload(data); err != nil {
		m.log.Debug("payload dropped", "size", len(data), "error", err)
		return
	}
	metrics.IncrCounter(metricBytesSent, float32(len(data)))
}
