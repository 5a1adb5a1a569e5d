package kvfifo

import (
	"errors"
	"fmt"
)

// Sentinel errors for queue operations.
var (
	ErrEmptyQueue  = errors.New("empty queue")
	ErrKeyNotFound = errors.New("key not found")
)

func keyNotFound[K any](k K) error {
	return fmt.Errorf("%w: %v", ErrKeyNotFound, k)
}
