package kvfifo

// nilIndex terminates both the global chain and every same-key chain.
const nilIndex = -1

// element is one queued pair. It lives in the snapshot arena and is linked
// into the global chain (prev/next) and into the chain of its key (keyNext,
// oldest to newest) at the same time. Free slots reuse next as the free list
// link.
type element[K, V any] struct {
	key     K
	value   V
	prev    int
	next    int
	keyNext int
}
