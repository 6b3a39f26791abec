package filesystem

import "sync"

// dirJob is one directory waiting to be read
type dirJob struct {
	abs string // path on disk
	rel string // forward-slash path relative to the root, "" for the root itself

	ancestors []dirKey // identities from the root down to this directory, set only when following symlinks
}

// dirQueue hands directories to a fixed set of workers. It closes itself once
// no directory is queued and no worker is still reading one, since only a
// reading worker can enqueue more.
type dirQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []dirJob
	active int
	closed bool
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *dirQueue) push(j dirJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, j)
	q.cond.Signal()
}

// pop blocks until a directory is available or the queue is closed.
// Directories are taken LIFO so traversal stays depth-first per worker.
func (q *dirQueue) pop() (dirJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return dirJob{}, false
	}
	last := len(q.items) - 1
	j := q.items[last]
	q.items = q.items[:last]
	q.active++
	return j, true
}

// done marks a popped directory as fully processed
func (q *dirQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.active--
	if q.active == 0 && len(q.items) == 0 {
		q.closed = true
		q.cond.Broadcast()
	}
}

// abort closes the queue, dropping anything still pending
func (q *dirQueue) abort() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}
