package mux

// table holds the live channels of a Mux keyed by id. It is guarded by
// the Mux lock.
type table struct {
	channels map[uint32]*Channel
}

func newTable() *table {
	return &table{channels: make(map[uint32]*Channel)}
}

func (t *table) add(ch *Channel) {
	t.channels[ch.id] = ch
}

func (t *table) get(id uint32) *Channel {
	return t.channels[id]
}

// remove deletes ch and reports whether it was present.
func (t *table) remove(ch *Channel) bool {
	if cur, ok := t.channels[ch.id]; !ok || cur != ch {
		return false
	}
	delete(t.channels, ch.id)
	return true
}

func (t *table) size() int {
	return len(t.channels)
}

func (t *table) list() []*Channel {
	chans := make([]*Channel, 0, len(t.channels))
	for _, ch := range t.channels {
		chans = append(chans, ch)
	}
	return chans
}

const channelSpace = 1 << 31

// allocator picks unused channel ids by walking a ring over half of the
// 32-bit id space.
type allocator struct {
	cursor uint32
	offset uint32
	space  uint32
}

func newAllocator(high bool) *allocator {
	a := &allocator{space: channelSpace}
	if high {
		a.offset = channelSpace
	}
	return a
}

// next returns the first id from the cursor onwards that inUse rejects.
// It gives up with ErrFull after one full turn of the ring.
func (a *allocator) next(inUse func(uint32) bool) (uint32, error) {
	for i := uint32(0); i < a.space; i++ {
		id := a.cursor + a.offset
		a.cursor = (a.cursor + 1) % a.space
		if !inUse(id) {
			return id, nil
		}
	}
	return 0, ErrFull
}
