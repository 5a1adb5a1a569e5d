package kvfifo

import (
	"cmp"
	"iter"

	"github.com/emirpasic/gods/maps/treemap"
)

// keyEntry tracks the bounds of one key's chain. count is always positive
// for an entry present in the index.
type keyEntry struct {
	oldest int
	newest int
	count  int
}

// keyIndex maps each live key to its keyEntry, ordered by key.
type keyIndex[K cmp.Ordered] struct {
	tree *treemap.Map
}

func compareKeys[K cmp.Ordered](a, b any) int {
	return cmp.Compare(a.(K), b.(K))
}

func newKeyIndex[K cmp.Ordered]() *keyIndex[K] {
	return &keyIndex[K]{tree: treemap.NewWith(compareKeys[K])}
}

func (ki *keyIndex[K]) get(k K) (*keyEntry, bool) {
	v, found := ki.tree.Get(k)
	if !found {
		return nil, false
	}
	return v.(*keyEntry), true
}

func (ki *keyIndex[K]) put(k K, e *keyEntry) {
	ki.tree.Put(k, e)
}

func (ki *keyIndex[K]) remove(k K) {
	ki.tree.Remove(k)
}

func (ki *keyIndex[K]) len() int {
	return ki.tree.Size()
}

func (ki *keyIndex[K]) clear() {
	ki.tree.Clear()
}

// all yields every key with its entry in ascending key order.
func (ki *keyIndex[K]) all() iter.Seq2[K, *keyEntry] {
	return func(yield func(K, *keyEntry) bool) {
		it := ki.tree.Iterator()
		for it.Next() {
			if !yield(it.Key().(K), it.Value().(*keyEntry)) {
				return
			}
		}
	}
}

func (ki *keyIndex[K]) clone() *keyIndex[K] {
	c := newKeyIndex[K]()
	for k, e := range ki.all() {
		entry := *e
		c.put(k, &entry)
	}
	return c
}
