package sequence

// Queue is a FIFO queue backed by a slice. It is not safe for concurrent
// use; callers that share a Queue across goroutines must provide their own
// locking.
type Queue[T any] struct {
	items []T
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Enqueue(value T) {
	q.items = append(q.items, value)
}

func (q *Queue[T]) Dequeue() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	value := q.items[0]
	q.items[0] = *new(T) // release the reference
	q.items = q.items[1:]
	return value, true
}

func (q *Queue[T]) Peek() (T, bool) {
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}
