package mux

import (
	"io"
	"net"
	"sync"
)

// outbox queues frames for the carrier and writes them from its own
// goroutine, so producers never block on the carrier. It tracks how many
// bytes are queued or in flight against a high-water mark.
type outbox struct {
	mu   sync.Mutex
	cond *sync.Cond

	w          io.Writer
	closeWrite func() error

	chunks   [][]byte
	buffered int
	hwm      int
	corked   int

	// full is set when buffered reaches hwm and cleared by the next drain.
	full bool

	ending bool
	closed bool

	onDrain func()
	onDone  func(error)
}

func newOutbox(w io.Writer, hwm int, closeWrite func() error) *outbox {
	o := &outbox{
		w:          w,
		hwm:        hwm,
		closeWrite: closeWrite,
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Write queues a copy of p.
func (o *outbox) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.ending {
		return 0, ErrFinished
	}
	o.chunks = append(o.chunks, append([]byte(nil), p...))
	o.buffered += len(p)
	if o.buffered >= o.hwm {
		o.full = true
	}
	o.cond.Signal()
	return len(p), nil
}

func (o *outbox) Buffered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffered
}

func (o *outbox) HighWaterMark() int {
	return o.hwm
}

// Space returns how many more bytes can be queued before the high-water
// mark is reached. It is negative when the mark has been overshot.
func (o *outbox) Space() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hwm - o.buffered
}

// Cork holds queued frames back until the matching Uncork.
func (o *outbox) Cork() {
	o.mu.Lock()
	o.corked++
	o.mu.Unlock()
}

func (o *outbox) Uncork() {
	o.mu.Lock()
	if o.corked > 0 {
		o.corked--
	}
	if o.corked == 0 {
		o.cond.Signal()
	}
	o.mu.Unlock()
}

// End stops accepting frames and half-closes the carrier once everything
// queued has been written.
func (o *outbox) End() {
	o.mu.Lock()
	o.ending = true
	o.corked = 0
	o.cond.Signal()
	o.mu.Unlock()
}

// Close drops anything queued and stops the writer.
func (o *outbox) Close() {
	o.mu.Lock()
	o.closed = true
	o.cond.Signal()
	o.mu.Unlock()
}

func (o *outbox) ready() bool {
	return o.corked == 0 && (len(o.chunks) > 0 || o.ending)
}

// run writes queued frames until the outbox is ended or closed, or a write
// fails, then calls onDone with the error that stopped it.
func (o *outbox) run() {
	var err error
	for {
		o.mu.Lock()
		for !o.closed && !o.ready() {
			o.cond.Wait()
		}
		if o.closed {
			o.mu.Unlock()
			break
		}
		if len(o.chunks) == 0 {
			o.mu.Unlock()
			err = o.closeWrite()
			break
		}
		bufs := net.Buffers(o.chunks)
		o.chunks = nil
		o.mu.Unlock()

		var n int64
		n, err = bufs.WriteTo(o.w)

		o.mu.Lock()
		o.buffered -= int(n)
		drained := o.full && o.buffered < o.hwm
		if drained {
			o.full = false
		}
		o.mu.Unlock()

		if err != nil {
			break
		}
		if drained && o.onDrain != nil {
			o.onDrain()
		}
	}

	o.mu.Lock()
	o.closed = true
	o.chunks = nil
	o.buffered = 0
	o.mu.Unlock()

	if o.onDone != nil {
		o.onDone(err)
	}
}
