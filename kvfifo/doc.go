// Package kvfifo provides Queue, an insertion-ordered multi-map queue with
// value semantics.
//
// A Queue holds key/value pairs in first-in-first-out order and also indexes
// them by key: the oldest and newest pair of a key, the number of pairs with
// a key, and moving every pair of a key to the back are all direct
// operations. Distinct keys iterate in ascending key order.
//
//	q := kvfifo.New[int, string]()
//	q.Push(1, "a")
//	q.Push(2, "b")
//	q.Push(1, "c")
//	first, _ := q.First(1)   // "a"
//	_ = q.MoveToBack(1)      // order is now (2,b) (1,a) (1,c)
//
// # Copies
//
// Clone is cheap: the copy shares storage with the original until either of
// them changes. Before a change the modifying queue copies the storage if it
// is shared. Reference accessors (FrontRef, BackRef, FirstRef, LastRef)
// return a pointer into the storage; they mark it tainted so that a later
// Clone copies eagerly instead of sharing, and a write through the pointer
// never shows up in a clone. A returned pointer is only valid until the next
// operation on the same queue.
//
// Release drops a queue's share of its storage right away. Queues created by
// New, Clone or Move that are dropped without Release give their share back
// when they are garbage collected. Values are copied by assignment when
// storage is copied; use SetValueCloner for values that hold slices, maps or
// pointers.
//
// # Observability
//
// Snapshot lifecycle transitions are reported to an observability.Observer
// (see WithObserver and Config.Observer) as events sourced "kvfifo".
package kvfifo
