package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueue_FIFO(t *testing.T) {
	q := newJobQueue()

	var order []int
	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(func() { order = append(order, i) }))
	}
	for {
		j, ok := q.TryDequeue()
		if !ok {
			break
		}
		j()
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestJobQueue_TryDequeue_Empty(t *testing.T) {
	q := newJobQueue()
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestJobQueue_Dequeue_BlocksUntilAvailable(t *testing.T) {
	q := newJobQueue()
	done := make(chan job)

	go func() {
		j, ok := q.Dequeue()
		if ok {
			done <- j
		}
	}()

	time.Sleep(10 * time.Millisecond)
	ran := false
	q.Enqueue(func() { ran = true })

	select {
	case j := <-done:
		j()
		assert.True(t, ran)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock")
	}
}

func TestJobQueue_CloseDrainsThenStops(t *testing.T) {
	q := newJobQueue()
	q.Enqueue(func() {})
	q.Close()

	assert.False(t, q.Enqueue(func() {}), "enqueue after close")

	_, ok := q.Dequeue()
	assert.True(t, ok, "jobs queued before close are still delivered")
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestJobQueue_Close_UnblocksDequeue(t *testing.T) {
	q := newJobQueue()
	done := make(chan bool)

	go func() {
		_, ok := q.Dequeue()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not unblock after close")
	}
}

func TestJobQueue_ThreadSafe(t *testing.T) {
	q := newJobQueue()
	const producers = 10
	const jobsPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < jobsPerProducer; i++ {
				q.Enqueue(func() {})
			}
		}()
	}
	wg.Wait()
	q.Close()

	n := 0
	for {
		if _, ok := q.Dequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*jobsPerProducer, n)
	assert.Zero(t, q.Len())
}
