package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushBackOrder(t *testing.T) {
	q := NewQueue("test")
	a, b, c := &Task{id: 1}, &Task{id: 2}, &Task{id: 3}

	require.True(t, q.Empty())
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	assert.False(t, q.Empty())
	assert.Equal(t, 3, q.Len())
	assert.Same(t, a, q.Front())

	var order []int
	q.Each(func(tt *Task) { order = append(order, tt.id) })
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestQueueRemoveMiddle(t *testing.T) {
	q := NewQueue("test")
	a, b, c := &Task{id: 1}, &Task{id: 2}, &Task{id: 3}
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	q.Remove(b)
	assert.Equal(t, 2, q.Len())
	assert.Nil(t, b.onQueue)

	var order []int
	q.Each(func(tt *Task) { order = append(order, tt.id) })
	assert.Equal(t, []int{1, 3}, order)

	// Removing again is a no-op.
	q.Remove(b)
	assert.Equal(t, 2, q.Len())
}

func TestQueueRotate(t *testing.T) {
	q := NewQueue("test")
	a, b, c := &Task{id: 1}, &Task{id: 2}, &Task{id: 3}
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	q.Rotate(a)

	var order []int
	q.Each(func(tt *Task) { order = append(order, tt.id) })
	assert.Equal(t, []int{2, 3, 1}, order)
	assert.Same(t, b, q.Front())
}

func TestQueueEachSurvivesSelfRemoval(t *testing.T) {
	q := NewQueue("test")
	a, b, c := &Task{id: 1}, &Task{id: 2}, &Task{id: 3}
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)

	var seen []int
	q.Each(func(tt *Task) {
		seen = append(seen, tt.id)
		if tt == b {
			q.Remove(tt)
		}
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 2, q.Len())
}

func TestQueueSingleOwnership(t *testing.T) {
	q1 := NewQueue("one")
	q2 := NewQueue("two")
	a := &Task{id: 1}

	q1.PushBack(a)
	assert.Same(t, q1, a.onQueue)

	q1.Remove(a)
	q2.PushBack(a)
	assert.Same(t, q2, a.onQueue)
	assert.True(t, q1.Empty())
	assert.Equal(t, 1, q2.Len())
}
