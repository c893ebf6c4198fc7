package dispatchsvc

import (
	"container/heap"
	"time"
)

// scheduler is the delayed-task queue driving timed tuple sends. It is
// owned by the engine goroutine and never locked. Tasks carry an owner id
// so a whole playback's pending sends can be cancelled in one call.
type scheduler struct {
	tasks taskHeap
	seq   uint64
}

type task struct {
	at    time.Time
	seq   uint64
	owner uint64
	run   func(now time.Time)

	cancelled bool
}

func newScheduler() *scheduler {
	return &scheduler{}
}

// schedule enqueues a task. owner 0 means the task cannot be cancelled
// (used for node recalculation points, which must survive playback
// removal).
func (s *scheduler) schedule(owner uint64, at time.Time, run func(now time.Time)) {
	s.seq++
	heap.Push(&s.tasks, &task{
		at:    at,
		seq:   s.seq,
		owner: owner,
		run:   run,
	})
}

// cancel drops every pending task belonging to owner.
func (s *scheduler) cancel(owner uint64) {
	if owner == 0 {
		return
	}
	for _, t := range s.tasks {
		if t.owner == owner {
			t.cancelled = true
		}
	}
}

// nextAt returns the due time of the earliest pending task. Cancelled
// entries at the top of the heap are discarded on the way.
func (s *scheduler) nextAt() (time.Time, bool) {
	for s.tasks.Len() > 0 {
		top := s.tasks[0]
		if top.cancelled {
			heap.Pop(&s.tasks)
			continue
		}
		return top.at, true
	}
	return time.Time{}, false
}

// runDue executes every task due at or before now, in due-time order.
// Tasks may schedule or cancel other tasks while running.
func (s *scheduler) runDue(now time.Time) {
	for s.tasks.Len() > 0 {
		top := s.tasks[0]
		if top.cancelled {
			heap.Pop(&s.tasks)
			continue
		}
		if top.at.After(now) {
			return
		}
		heap.Pop(&s.tasks)
		top.run(now)
	}
}

// pendingFor counts live tasks for an owner.
func (s *scheduler) pendingFor(owner uint64) int {
	n := 0
	for _, t := range s.tasks {
		if t.owner == owner && !t.cancelled {
			n++
		}
	}
	return n
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(*task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
