package mux

import (
	"io"
	"sync"
)

// buffer provides a linked list buffer for data exchange
// between producer and consumer. Theoretically the buffer is
// of unlimited capacity as it does no allocation of its own.
type buffer struct {
	// protects concurrent access to head, tail and closed
	*sync.Cond

	head *element // the buffer that will be read first
	tail *element // the buffer that will be read last

	size int

	closed bool
	err    error // returned once the buffer is drained after eof

	aborted error // returned immediately, buffered data is dropped
}

// An element represents a single link in a linked list.
type element struct {
	buf  []byte
	next *element
}

// newBuffer returns an empty buffer that is not closed.
func newBuffer() *buffer {
	e := new(element)
	b := &buffer{
		Cond: newCond(),
		head: e,
		tail: e,
	}
	return b
}

func newCond() *sync.Cond {
	return sync.NewCond(new(sync.Mutex))
}

// write makes a copy of buf available to Read. Data written after eof or
// abort is dropped.
func (b *buffer) write(buf []byte) {
	b.Cond.L.Lock()
	defer b.Cond.L.Unlock()
	if b.closed || b.aborted != nil {
		return
	}
	e := &element{buf: append([]byte(nil), buf...)}
	b.tail.next = e
	b.tail = e
	b.size += len(buf)
	b.Cond.Signal()
}

// eof closes the buffer. Reads from the buffer once all
// the data has been consumed will return err, or io.EOF if err is nil.
// Only the first call has an effect.
func (b *buffer) eof(err error) {
	b.Cond.L.Lock()
	defer b.Cond.L.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.err = err
	b.Cond.Broadcast()
}

// abort drops any buffered data and makes every following Read return err.
func (b *buffer) abort(err error) {
	b.Cond.L.Lock()
	defer b.Cond.L.Unlock()
	if b.aborted != nil {
		return
	}
	b.aborted = err
	b.head = b.tail
	b.head.buf = nil
	b.size = 0
	b.Cond.Broadcast()
}

// len returns the number of unread bytes.
func (b *buffer) len() int {
	b.Cond.L.Lock()
	defer b.Cond.L.Unlock()
	return b.size
}

// Read reads data from the internal buffer in buf.  Reads will block
// if no data is available, or until the buffer is closed.
func (b *buffer) Read(buf []byte) (n int, err error) {
	b.Cond.L.Lock()
	defer b.Cond.L.Unlock()

	for len(buf) > 0 {
		if b.aborted != nil {
			return 0, b.aborted
		}

		// if there is data in b.head, copy it
		if len(b.head.buf) > 0 {
			r := copy(buf, b.head.buf)
			buf, b.head.buf = buf[r:], b.head.buf[r:]
			n += r
			b.size -= r
			continue
		}
		// if there is a next buffer, make it the head
		if len(b.head.buf) == 0 && b.head != b.tail {
			b.head = b.head.next
			continue
		}

		// if at least one byte has been copied, return
		if n > 0 {
			break
		}

		// if nothing was read, and there is nothing outstanding
		// check to see if the buffer is closed.
		if b.closed {
			err = b.err
			if err == nil {
				err = io.EOF
			}
			break
		}
		// out of buffers, wait for producer
		b.Cond.Wait()
	}
	return
}
