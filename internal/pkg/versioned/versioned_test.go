package versioned

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareAndSwap_IncrementsByOne(t *testing.T) {
	e := New("a", 1)
	v, ver, err := e.CompareAndSwap(1, nil, func(s string) (string, error) { return s + "b", nil })
	require.NoError(t, err)
	assert.Equal(t, "ab", v)
	assert.Equal(t, int64(2), ver)

	_, ver, err = e.CompareAndSwap(1, nil, func(s string) (string, error) { return "x", nil })
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, int64(1), mm.Expected)
	assert.Equal(t, int64(2), mm.Actual)
	assert.Equal(t, int64(2), ver)

	cur, curVer := e.Load()
	assert.Equal(t, "ab", cur)
	assert.Equal(t, int64(2), curVer)
}

func TestCompareAndSwap_GuardRunsBeforeVersionCheck(t *testing.T) {
	e := New(10, 3)
	guardErr := errors.New("guard")
	_, _, err := e.CompareAndSwap(1, func(int) error { return guardErr }, func(n int) (int, error) { return n, nil })
	assert.ErrorIs(t, err, guardErr)
}

func TestCompareAndSwap_ApplyErrorLeavesValue(t *testing.T) {
	e := New(10, 1)
	_, _, err := e.CompareAndSwap(1, nil, func(n int) (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	v, ver := e.Load()
	assert.Equal(t, 10, v)
	assert.Equal(t, int64(1), ver)
}

func TestCompareAndSwap_ConcurrentSameVersionOneWinner(t *testing.T) {
	e := New(0, 1)
	var wins, stale int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.CompareAndSwap(1, nil, func(n int) (int, error) { return n + 1, nil })
			if err == nil {
				atomic.AddInt32(&wins, 1)
				return
			}
			var mm *MismatchError
			if errors.As(err, &mm) {
				atomic.AddInt32(&stale, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(31), stale)
	v, ver := e.Load()
	assert.Equal(t, 1, v)
	assert.Equal(t, int64(2), ver)
}
