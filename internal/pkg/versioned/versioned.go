// Package versioned provides an optimistic-concurrency wrapper around a value.
package versioned

import (
	"fmt"
	"sync"
)

// MismatchError is returned by CompareAndSwap when the caller's version is stale.
type MismatchError struct {
	Expected int64
	Actual   int64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("version mismatch: expected %d, current %d", e.Expected, e.Actual)
}

// Entity holds a value and a version counter that increases by exactly one per
// successful CompareAndSwap.
type Entity[T any] struct {
	mu      sync.Mutex
	value   T
	version int64
}

// New wraps value at the given starting version.
func New[T any](value T, version int64) *Entity[T] {
	return &Entity[T]{value: value, version: version}
}

// Load returns the current value and version.
func (e *Entity[T]) Load() (T, int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.version
}

// CompareAndSwap runs guard, then compares expected against the current version,
// then runs apply and stores its result with version+1. The whole sequence is a
// single critical section. Errors from guard or apply leave the entity untouched.
func (e *Entity[T]) CompareAndSwap(expected int64, guard func(T) error, apply func(T) (T, error)) (T, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero T
	if guard != nil {
		if err := guard(e.value); err != nil {
			return zero, e.version, err
		}
	}
	if expected != e.version {
		return zero, e.version, &MismatchError{Expected: expected, Actual: e.version}
	}
	next, err := apply(e.value)
	if err != nil {
		return zero, e.version, err
	}
	e.value = next
	e.version++
	return e.value, e.version, nil
}
