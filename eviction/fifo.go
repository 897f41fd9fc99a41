// This file implements FIFO eviction.

package eviction

type fifo struct {
	// queue holds keys in creation order, oldest first.
	queue []string

	// set tracks membership of queue.
	set map[string]struct{}
}

func newFIFO() *fifo {
	return &fifo{set: make(map[string]struct{})}
}

// OnGet is ignored: FIFO only cares about creation order.
func (f *fifo) OnGet(string) {}

func (f *fifo) OnPut(k string) {
	if _, ok := f.set[k]; ok {
		return
	}
	f.queue = append(f.queue, k)
	f.set[k] = struct{}{}
}

// Evict returns the oldest key that is not skipped.
func (f *fifo) Evict(skip func(string) bool) string {
	for i, k := range f.queue {
		if skip != nil && skip(k) {
			continue
		}
		f.queue = append(f.queue[:i], f.queue[i+1:]...)
		delete(f.set, k)
		return k
	}
	return ""
}

func (f *fifo) Remove(k string) {
	if _, ok := f.set[k]; !ok {
		return
	}
	delete(f.set, k)
	for i, v := range f.queue {
		if v == k {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
}
