package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := newFIFO[int]()
	for i := 0; i < 100; i++ {
		q.push(i)
	}

	for i := 0; i < 100; i++ {
		v, ok := q.pop(context.Background(), time.Second)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.len())
}

func TestFIFOPopTimesOut(t *testing.T) {
	q := newFIFO[int]()

	start := time.Now()
	_, ok := q.pop(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestFIFOPopReturnsOnCancel(t *testing.T) {
	q := newFIFO[int]()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, ok := q.pop(ctx, 10*time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFIFOPopWakesOnPush(t *testing.T) {
	q := newFIFO[string]()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.push("hello")
	}()

	v, ok := q.pop(context.Background(), 5*time.Second)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestFIFOManyProducersPreserveItems(t *testing.T) {
	q := newFIFO[int]()
	const producers = 8
	const perProducer = 50

	for p := 0; p < producers; p++ {
		go func(p int) {
			for i := 0; i < perProducer; i++ {
				q.push(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	for i := 0; i < producers*perProducer; i++ {
		v, ok := q.pop(context.Background(), time.Second)
		require.True(t, ok)
		require.False(t, seen[v], "item delivered twice")
		seen[v] = true
	}
	assert.Len(t, seen, producers*perProducer)
}
