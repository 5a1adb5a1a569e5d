package kvfifo

import (
	"cmp"
	"iter"
	"runtime"

	"github.com/tailored-agentic-units/kvfifo/observability"
)

// noCopy lets go vet's copylocks check flag Queue values copied by
// assignment. Use Clone, Move or Assign instead.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Queue is an insertion-ordered multi-map queue with value semantics.
//
// Copies made with Clone share storage until one of them is modified. A
// pointer returned by FrontRef, BackRef, FirstRef or LastRef is valid only
// until the next operation on the same Queue; taking one also forces the next
// Clone to copy eagerly, so writes through it never reach other queues.
//
// The zero value is an empty queue ready to use. A Queue is not safe for
// concurrent mutation.
type Queue[K cmp.Ordered, V any] struct {
	_        noCopy
	snap     *snapshot[K, V]
	observer observability.Observer
	capacity int
	cloner   func(V) V

	// Queues allocated by New, Clone and Move are managed: while they hold a
	// snapshot, cleanup releases it once the Queue is garbage collected.
	managed bool
	cleanup runtime.Cleanup
}

// New creates an empty Queue with the no-op observer.
func New[K cmp.Ordered, V any](opts ...Option) *Queue[K, V] {
	s := settings{observer: observability.NoOpObserver{}}
	for _, opt := range opts {
		opt(&s)
	}
	return &Queue[K, V]{
		observer: s.observer,
		capacity: s.capacity,
		managed:  true,
	}
}

// NewFromConfig creates an empty Queue from configuration. A nil cfg means
// DefaultConfig. The observer is resolved by name through the observability
// registry. Options are applied after the config and override it.
func NewFromConfig[K cmp.Ordered, V any](cfg *Config, opts ...Option) (*Queue[K, V], error) {
	if cfg == nil {
		def := DefaultConfig()
		cfg = &def
	}

	name := cfg.Observer
	if name == "" {
		name = defaultObserver
	}
	obs, err := observability.GetObserver(name)
	if err != nil {
		return nil, err
	}

	base := []Option{WithObserver(obs), WithCapacity(cfg.Capacity)}
	return New[K, V](append(base, opts...)...), nil
}

// SetValueCloner installs fn as the deep-copy function for stored values. It
// is applied to every value whenever q copies shared or tainted storage, and
// queues cloned from q inherit it. Without it values are copied by
// assignment, which leaves slices, maps and pointers shared between copies.
func (q *Queue[K, V]) SetValueCloner(fn func(V) V) {
	q.cloner = fn
}

func (q *Queue[K, V]) derive(snap *snapshot[K, V]) *Queue[K, V] {
	d := &Queue[K, V]{
		observer: q.observer,
		capacity: q.capacity,
		cloner:   q.cloner,
		managed:  true,
	}
	d.setSnap(snap)
	return d
}

func releaseSnapshot[K cmp.Ordered, V any](s *snapshot[K, V]) {
	s.release()
}

// setSnap points q at s without changing any reference count. The cleanup of
// a managed queue follows the snapshot, so it always releases the one q
// holds.
func (q *Queue[K, V]) setSnap(s *snapshot[K, V]) {
	if q.managed && q.snap != nil {
		q.cleanup.Stop()
	}
	q.snap = s
	if q.managed && s != nil {
		q.cleanup = runtime.AddCleanup(q, releaseSnapshot[K, V], s)
	}
}

// observed reports whether events reach anyone. Event data and snapshot ids
// are only produced when they do.
func (q *Queue[K, V]) observed() bool {
	switch q.observer.(type) {
	case nil, observability.NoOpObserver, *observability.NoOpObserver:
		return false
	}
	return true
}

// Clone returns an independent copy of q. Storage is shared until either
// queue is modified, unless a reference handed out by a Ref accessor may
// still be live, in which case the copy is made immediately.
func (q *Queue[K, V]) Clone() *Queue[K, V] {
	return q.derive(q.acquire())
}

// acquire returns a snapshot with q's contents and one reference owned by
// the caller.
func (q *Queue[K, V]) acquire() *snapshot[K, V] {
	switch {
	case q.snap == nil:
		return nil
	case q.snap.isTainted():
		return q.copySnapshot(ReasonTainted)
	default:
		q.snap.share()
		if q.observed() {
			emit(q.observer, EventSnapshotShare, map[string]any{
				"snapshot": q.snap.id.String(),
				"refs":     q.snap.refs.Load(),
			})
		}
		return q.snap
	}
}

// Move transfers the contents of q to a new Queue and leaves q empty.
func (q *Queue[K, V]) Move() *Queue[K, V] {
	s := q.snap
	q.setSnap(nil)
	return q.derive(s)
}

// Assign makes q a copy of src, following the same sharing rules as Clone.
func (q *Queue[K, V]) Assign(src *Queue[K, V]) {
	s := src.acquire()
	q.Release()
	q.observer = src.observer
	q.capacity = src.capacity
	q.cloner = src.cloner
	q.setSnap(s)
}

// Release drops q's reference to its storage and leaves q empty. A Queue
// from New, Clone or Move that is discarded without Release has its
// reference dropped when it is garbage collected; that path emits no event.
func (q *Queue[K, V]) Release() {
	s := q.snap
	if s == nil {
		return
	}
	q.setSnap(nil)
	if s.release() && q.observed() {
		emit(q.observer, EventSnapshotRelease, map[string]any{
			"snapshot": s.id.String(),
		})
	}
}

func (q *Queue[K, V]) copySnapshot(reason string) *snapshot[K, V] {
	c := q.snap.clone(q.cloner)
	if q.observed() {
		c.identify()
		emit(q.observer, EventSnapshotClone, map[string]any{
			"snapshot": c.id.String(),
			"from":     q.snap.id.String(),
			"reason":   reason,
			"len":      c.size,
		})
	}
	return c
}

// detach gives q an exclusively owned snapshot, copying the shared one when
// needed.
func (q *Queue[K, V]) detach() {
	switch {
	case q.snap == nil:
		s := newSnapshot[K, V](q.capacity)
		if q.observed() {
			s.identify()
			emit(q.observer, EventSnapshotCreate, map[string]any{
				"snapshot": s.id.String(),
			})
		}
		q.setSnap(s)
	case !q.snap.exclusive():
		c := q.copySnapshot(ReasonShared)
		q.Release()
		q.setSnap(c)
	}
}

// prepareMutation is called once all preconditions hold and q is about to be
// changed structurally. A structural change through q supersedes any earlier
// outstanding reference, so the taint is cleared.
func (q *Queue[K, V]) prepareMutation() {
	if q.snap.exclusive() {
		q.snap.tainted = false
		return
	}
	q.detach()
}

// prepareRef is called before handing out a pointer into q's storage.
func (q *Queue[K, V]) prepareRef() {
	q.detach()
	if !q.snap.tainted {
		q.snap.tainted = true
		if q.observed() {
			emit(q.observer, EventSnapshotTaint, map[string]any{
				"snapshot": q.snap.id.String(),
			})
		}
	}
}

// Push appends the pair (k, v) to the back of the queue.
func (q *Queue[K, V]) Push(k K, v V) {
	q.prepareMutation()
	q.snap.push(k, v)
}

// Pop removes the front pair and returns it.
func (q *Queue[K, V]) Pop() (K, V, error) {
	if q.snap.len() == 0 {
		var k K
		var v V
		return k, v, ErrEmptyQueue
	}
	q.prepareMutation()
	k, v := q.snap.pop()
	return k, v, nil
}

// PopKey removes the oldest pair with key k and returns its value.
func (q *Queue[K, V]) PopKey(k K) (V, error) {
	if q.snap.count(k) == 0 {
		var v V
		return v, keyNotFound(k)
	}
	q.prepareMutation()
	return q.snap.popKey(k), nil
}

// MoveToBack moves every pair with key k to the back of the queue. Pairs
// with key k keep their relative order, as do all other pairs.
func (q *Queue[K, V]) MoveToBack(k K) error {
	if q.snap.count(k) == 0 {
		return keyNotFound(k)
	}
	q.prepareMutation()
	q.snap.moveToBack(k)
	return nil
}

// Clear removes every pair. Storage shared with other queues is left to
// them; exclusively owned storage is emptied in place.
func (q *Queue[K, V]) Clear() {
	if q.snap.exclusive() {
		q.snap.reset()
		return
	}
	q.Release()
}

// Front returns the oldest pair in the queue.
func (q *Queue[K, V]) Front() (K, V, error) {
	if q.snap.len() == 0 {
		var k K
		var v V
		return k, v, ErrEmptyQueue
	}
	el := q.snap.front()
	return el.key, el.value, nil
}

// Back returns the newest pair in the queue.
func (q *Queue[K, V]) Back() (K, V, error) {
	if q.snap.len() == 0 {
		var k K
		var v V
		return k, v, ErrEmptyQueue
	}
	el := q.snap.back()
	return el.key, el.value, nil
}

// First returns the value of the oldest pair with key k.
func (q *Queue[K, V]) First(k K) (V, error) {
	e, ok := q.snap.entry(k)
	if !ok {
		var v V
		return v, keyNotFound(k)
	}
	return q.snap.elems[e.oldest].value, nil
}

// Last returns the value of the newest pair with key k.
func (q *Queue[K, V]) Last(k K) (V, error) {
	e, ok := q.snap.entry(k)
	if !ok {
		var v V
		return v, keyNotFound(k)
	}
	return q.snap.elems[e.newest].value, nil
}

// FrontRef returns the key of the oldest pair and a pointer to its value.
func (q *Queue[K, V]) FrontRef() (K, *V, error) {
	if q.snap.len() == 0 {
		var k K
		return k, nil, ErrEmptyQueue
	}
	q.prepareRef()
	el := q.snap.front()
	return el.key, &el.value, nil
}

// BackRef returns the key of the newest pair and a pointer to its value.
func (q *Queue[K, V]) BackRef() (K, *V, error) {
	if q.snap.len() == 0 {
		var k K
		return k, nil, ErrEmptyQueue
	}
	q.prepareRef()
	el := q.snap.back()
	return el.key, &el.value, nil
}

// FirstRef returns a pointer to the value of the oldest pair with key k.
func (q *Queue[K, V]) FirstRef(k K) (*V, error) {
	if q.snap.count(k) == 0 {
		return nil, keyNotFound(k)
	}
	q.prepareRef()
	e, _ := q.snap.entry(k)
	return &q.snap.elems[e.oldest].value, nil
}

// LastRef returns a pointer to the value of the newest pair with key k.
func (q *Queue[K, V]) LastRef(k K) (*V, error) {
	if q.snap.count(k) == 0 {
		return nil, keyNotFound(k)
	}
	q.prepareRef()
	e, _ := q.snap.entry(k)
	return &q.snap.elems[e.newest].value, nil
}

// Count returns the number of pairs with key k.
func (q *Queue[K, V]) Count(k K) int {
	return q.snap.count(k)
}

// Len returns the number of pairs in the queue.
func (q *Queue[K, V]) Len() int {
	return q.snap.len()
}

// Empty reports whether the queue holds no pairs.
func (q *Queue[K, V]) Empty() bool {
	return q.snap.len() == 0
}

// Keys returns the distinct keys in ascending order. Each iteration reads
// the queue as it is when the iteration starts; the queue must not be
// modified while an iteration is in progress.
func (q *Queue[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		if q.snap == nil {
			return
		}
		for k := range q.snap.index.all() {
			if !yield(k) {
				return
			}
		}
	}
}

// All returns the pairs in queue order, oldest first. The queue must not be
// modified while an iteration is in progress.
func (q *Queue[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		s := q.snap
		if s == nil {
			return
		}
		for i := s.head; i != nilIndex; i = s.elems[i].next {
			if !yield(s.elems[i].key, s.elems[i].value) {
				return
			}
		}
	}
}
