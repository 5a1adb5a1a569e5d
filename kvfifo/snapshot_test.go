package kvfifo

import (
	"cmp"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// checkInvariants verifies the structural invariants of s: consistent global
// links, per-key chains matching the global order restricted to the key,
// counts that add up, and a free list covering every unused slot.
func checkInvariants[K cmp.Ordered, V any](t require.TestingT, s *snapshot[K, V]) {
	if s == nil {
		return
	}

	var order []int
	prev := nilIndex
	for i := s.head; i != nilIndex; i = s.elems[i].next {
		require.Equal(t, prev, s.elems[i].prev, "prev link of slot %d", i)
		order = append(order, i)
		prev = i
		require.LessOrEqual(t, len(order), len(s.elems), "global chain has a cycle")
	}
	require.Equal(t, prev, s.tail, "tail")
	require.Len(t, order, s.size, "size")

	byKey := map[K][]int{}
	for _, i := range order {
		byKey[s.elems[i].key] = append(byKey[s.elems[i].key], i)
	}

	require.Equal(t, len(byKey), s.index.len(), "distinct keys")
	total := 0
	var keys []K
	for k, e := range s.index.all() {
		keys = append(keys, k)
		want, ok := byKey[k]
		require.True(t, ok, "index holds key %v with no live element", k)
		require.Positive(t, e.count)
		require.Equal(t, len(want), e.count, "count of %v", k)
		require.Equal(t, want[0], e.oldest, "oldest of %v", k)
		require.Equal(t, want[len(want)-1], e.newest, "newest of %v", k)

		var chain []int
		for i := e.oldest; i != nilIndex; i = s.elems[i].keyNext {
			chain = append(chain, i)
			require.LessOrEqual(t, len(chain), len(want), "key chain of %v too long", k)
		}
		require.Equal(t, want, chain, "key chain of %v", k)
		total += e.count
	}
	require.Equal(t, s.size, total, "sum of key counts")
	require.True(t, slices.IsSorted(keys), "keys out of order: %v", keys)

	free := 0
	for i := s.free; i != nilIndex; i = s.elems[i].next {
		free++
		require.LessOrEqual(t, free, len(s.elems), "free list has a cycle")
	}
	require.Equal(t, len(s.elems), s.size+free, "live plus free slots")
}

func TestSnapshot_PushPopInvariants(t *testing.T) {
	s := newSnapshot[string, int](0)
	for i, k := range []string{"b", "a", "b", "c", "a", "b"} {
		s.push(k, i)
		checkInvariants(t, s)
	}

	k, v := s.pop()
	require.Equal(t, "b", k)
	require.Equal(t, 0, v)
	checkInvariants(t, s)

	require.Equal(t, 1, s.popKey("a"))
	checkInvariants(t, s)

	s.moveToBack("b")
	checkInvariants(t, s)
	require.Equal(t, "c", s.front().key)
	require.Equal(t, 5, s.back().value)
}

func TestSnapshot_FreeSlotsReused(t *testing.T) {
	s := newSnapshot[int, string](0)
	s.push(1, "a")
	s.push(2, "b")
	s.push(3, "c")

	s.pop()
	s.popKey(3)
	checkInvariants(t, s)
	require.Len(t, s.elems, 3)

	s.push(4, "d")
	s.push(5, "e")
	require.Len(t, s.elems, 3, "pushes should reuse freed slots")
	checkInvariants(t, s)

	s.push(6, "f")
	require.Len(t, s.elems, 4)
	checkInvariants(t, s)
}

func TestSnapshot_DisposeZeroesValue(t *testing.T) {
	s := newSnapshot[int, *int](0)
	v := 7
	s.push(1, &v)
	s.pop()

	require.Nil(t, s.elems[0].value)
}

func TestSnapshot_UnlinkInteriorKeyElement(t *testing.T) {
	s := newSnapshot[string, int](0)
	for i, k := range []string{"x", "y", "x", "x"} {
		s.push(k, i)
	}

	// Slot 2 is the middle element of key x.
	s.unlink(2)
	s.unlinkKey(2)
	s.dispose(2)
	s.size--
	checkInvariants(t, s)

	e, _ := s.index.get("x")
	require.Equal(t, 2, e.count)
	require.Equal(t, 0, e.oldest)
	require.Equal(t, 3, e.newest)

	// Slot 3 is now the newest of x.
	s.unlink(3)
	s.unlinkKey(3)
	s.dispose(3)
	s.size--
	checkInvariants(t, s)

	e, _ = s.index.get("x")
	require.Equal(t, 0, e.newest)
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	s := newSnapshot[string, int](0)
	s.push("a", 1)
	s.push("b", 2)
	s.push("a", 3)
	s.pop()
	s.tainted = true
	s.identify()

	c := s.clone(nil)
	checkInvariants(t, c)
	require.False(t, c.tainted)
	require.EqualValues(t, 1, c.refs.Load())
	require.Equal(t, uuid.Nil, c.id)
	c.identify()
	require.NotEqual(t, s.id, c.id)

	c.push("c", 4)
	c.moveToBack("b")
	checkInvariants(t, c)
	checkInvariants(t, s)

	require.Equal(t, 2, s.size)
	require.Equal(t, "b", s.front().key)
	require.Equal(t, 0, s.count("c"))
}

func TestSnapshot_Reset(t *testing.T) {
	s := newSnapshot[int, string](8)
	s.push(1, "a")
	s.push(2, "b")
	s.tainted = true

	s.reset()
	checkInvariants(t, s)
	require.Equal(t, 0, s.len())
	require.False(t, s.tainted)
	require.Equal(t, 8, cap(s.elems))

	s.push(3, "c")
	checkInvariants(t, s)
}

func TestSnapshot_NilReads(t *testing.T) {
	var s *snapshot[int, int]

	require.Equal(t, 0, s.len())
	require.Equal(t, 0, s.count(1))
	require.False(t, s.exclusive())
	require.False(t, s.isTainted())
	_, ok := s.entry(1)
	require.False(t, ok)
}
