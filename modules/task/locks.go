package task

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// taskLocks serializes writers per task ID. IDs hash onto a fixed set of
// mutexes, so unrelated tasks occasionally share one.
type taskLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *taskLocks) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &l.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
