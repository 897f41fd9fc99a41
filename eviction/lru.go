// This file implements LRU eviction.

package eviction

// lruNode is one key in the usage list.
type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

// lru keeps keys in a doubly-linked list, most recently used at head.
type lru struct {
	nodes map[string]*lruNode
	head  *lruNode
	tail  *lruNode
}

func newLRU() *lru {
	return &lru{nodes: make(map[string]*lruNode)}
}

func (l *lru) OnGet(k string) {
	if n, ok := l.nodes[k]; ok {
		l.unlink(n)
		l.pushFront(n)
	}
}

func (l *lru) OnPut(k string) {
	if _, ok := l.nodes[k]; ok {
		return
	}
	n := &lruNode{key: k}
	l.nodes[k] = n
	l.pushFront(n)
}

// Evict walks from the least recently used end and returns the first key
// the caller does not want to keep.
func (l *lru) Evict(skip func(string) bool) string {
	for n := l.tail; n != nil; n = n.prev {
		if skip != nil && skip(n.key) {
			continue
		}
		l.unlink(n)
		delete(l.nodes, n.key)
		return n.key
	}
	return ""
}

func (l *lru) Remove(k string) {
	if n, ok := l.nodes[k]; ok {
		l.unlink(n)
		delete(l.nodes, k)
	}
}

func (l *lru) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lru) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
