package kvfifo

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// snapshot is the concrete container a Queue points to. Several queues may
// share one snapshot; refs counts them. A nil *snapshot is the canonical
// empty snapshot: every read method accepts a nil receiver.
//
// id stays uuid.Nil until identify is called; it is only needed for events.
type snapshot[K cmp.Ordered, V any] struct {
	id      uuid.UUID
	refs    atomic.Int64
	elems   []element[K, V]
	free    int
	head    int
	tail    int
	index   *keyIndex[K]
	size    int
	tainted bool
}

func newSnapshot[K cmp.Ordered, V any](capacity int) *snapshot[K, V] {
	s := &snapshot[K, V]{
		elems: make([]element[K, V], 0, max(capacity, 0)),
		free:  nilIndex,
		head:  nilIndex,
		tail:  nilIndex,
		index: newKeyIndex[K](),
	}
	s.refs.Store(1)
	return s
}

// clone returns an exclusively owned, unidentified deep copy of s. Arena
// indices are preserved, so key entries are copied verbatim. A non-nil cloner
// is applied to every live value.
func (s *snapshot[K, V]) clone(cloner func(V) V) *snapshot[K, V] {
	c := &snapshot[K, V]{
		elems: slices.Clone(s.elems),
		free:  s.free,
		head:  s.head,
		tail:  s.tail,
		index: s.index.clone(),
		size:  s.size,
	}
	if cloner != nil {
		for i := c.head; i != nilIndex; i = c.elems[i].next {
			c.elems[i].value = cloner(c.elems[i].value)
		}
	}
	c.refs.Store(1)
	return c
}

// identify assigns s a fresh time-ordered id. It must be called before s is
// shared.
func (s *snapshot[K, V]) identify() {
	s.id = uuid.Must(uuid.NewV7())
}

func (s *snapshot[K, V]) exclusive() bool {
	return s != nil && s.refs.Load() == 1
}

func (s *snapshot[K, V]) share() {
	s.refs.Inc()
}

// release drops one reference and reports whether it was the last one.
func (s *snapshot[K, V]) release() bool {
	return s.refs.Dec() == 0
}

func (s *snapshot[K, V]) len() int {
	if s == nil {
		return 0
	}
	return s.size
}

func (s *snapshot[K, V]) isTainted() bool {
	return s != nil && s.tainted
}

func (s *snapshot[K, V]) entry(k K) (*keyEntry, bool) {
	if s == nil {
		return nil, false
	}
	return s.index.get(k)
}

func (s *snapshot[K, V]) count(k K) int {
	e, ok := s.entry(k)
	if !ok {
		return 0
	}
	return e.count
}

func (s *snapshot[K, V]) alloc(k K, v V) int {
	el := element[K, V]{key: k, value: v, prev: nilIndex, next: nilIndex, keyNext: nilIndex}
	if s.free == nilIndex {
		s.elems = append(s.elems, el)
		return len(s.elems) - 1
	}
	idx := s.free
	s.free = s.elems[idx].next
	s.elems[idx] = el
	return idx
}

// dispose returns the slot at idx to the free list. The stored key and value
// are zeroed so the arena does not keep them reachable.
func (s *snapshot[K, V]) dispose(idx int) {
	s.elems[idx] = element[K, V]{prev: nilIndex, next: s.free, keyNext: nilIndex}
	s.free = idx
}

func (s *snapshot[K, V]) linkTail(idx int) {
	el := &s.elems[idx]
	el.prev = s.tail
	el.next = nilIndex
	if s.tail == nilIndex {
		s.head = idx
	} else {
		s.elems[s.tail].next = idx
	}
	s.tail = idx
}

func (s *snapshot[K, V]) unlink(idx int) {
	el := &s.elems[idx]
	if el.prev == nilIndex {
		s.head = el.next
	} else {
		s.elems[el.prev].next = el.next
	}
	if el.next == nilIndex {
		s.tail = el.prev
	} else {
		s.elems[el.next].prev = el.prev
	}
	el.prev, el.next = nilIndex, nilIndex
}

// linkKey appends idx to the chain of its key, creating the entry when the
// key is new.
func (s *snapshot[K, V]) linkKey(idx int) {
	k := s.elems[idx].key
	e, ok := s.index.get(k)
	if !ok {
		s.index.put(k, &keyEntry{oldest: idx, newest: idx, count: 1})
		return
	}
	s.elems[e.newest].keyNext = idx
	e.newest = idx
	e.count++
}

// unlinkKey removes idx from the chain of its key. Both pop paths remove the
// oldest element of a key; an interior element is spliced out by walking the
// chain from the oldest.
func (s *snapshot[K, V]) unlinkKey(idx int) {
	k := s.elems[idx].key
	e, _ := s.index.get(k)

	if e.oldest == idx {
		e.oldest = s.elems[idx].keyNext
	} else {
		p := e.oldest
		for s.elems[p].keyNext != idx {
			p = s.elems[p].keyNext
		}
		s.elems[p].keyNext = s.elems[idx].keyNext
		if e.newest == idx {
			e.newest = p
		}
	}
	s.elems[idx].keyNext = nilIndex

	e.count--
	if e.count == 0 {
		s.index.remove(k)
	}
}

func (s *snapshot[K, V]) push(k K, v V) {
	idx := s.alloc(k, v)
	s.linkTail(idx)
	s.linkKey(idx)
	s.size++
}

func (s *snapshot[K, V]) remove(idx int) (K, V) {
	s.unlink(idx)
	s.unlinkKey(idx)
	el := s.elems[idx]
	s.dispose(idx)
	s.size--
	return el.key, el.value
}

// pop removes the global head. The head is always the oldest element of its
// own key. The caller guarantees s is not empty.
func (s *snapshot[K, V]) pop() (K, V) {
	return s.remove(s.head)
}

// popKey removes the oldest element with key k. The caller guarantees k is
// present.
func (s *snapshot[K, V]) popKey(k K) V {
	e, _ := s.index.get(k)
	_, v := s.remove(e.oldest)
	return v
}

// moveToBack relocates every element of k to the global tail, keeping their
// relative order. The caller guarantees k is present.
func (s *snapshot[K, V]) moveToBack(k K) {
	e, _ := s.index.get(k)
	for i := e.oldest; i != nilIndex; i = s.elems[i].keyNext {
		s.unlink(i)
		s.linkTail(i)
	}
}

// reset empties s in place, keeping the arena capacity.
func (s *snapshot[K, V]) reset() {
	clear(s.elems)
	s.elems = s.elems[:0]
	s.free, s.head, s.tail = nilIndex, nilIndex, nilIndex
	s.index.clear()
	s.size = 0
	s.tainted = false
}

func (s *snapshot[K, V]) front() *element[K, V] {
	return &s.elems[s.head]
}

func (s *snapshot[K, V]) back() *element[K, V] {
	return &s.elems[s.tail]
}
