package progress

import "sync"

// Queue - очередь уведомлений о достижениях. За одно обновление
// показывается одно достижение, остальные ждут своей очереди.
type Queue struct {
	mu      sync.Mutex
	pending []Achievement
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(achievements ...Achievement) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, achievements...)
}

// Next извлекает следующее достижение
func (q *Queue) Next() (Achievement, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Achievement{}, false
	}
	a := q.pending[0]
	q.pending = q.pending[1:]
	return a, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}
