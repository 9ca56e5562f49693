package threads

const none = -1

type queueNode struct {
	valid bool
	tid   int
	next  int
}

// readyQueue is a FIFO of thread ids linked through a fixed node array.
// Unused nodes double as the free list.
type readyQueue struct {
	nodes []queueNode
	head  int
}

func newReadyQueue(size int) readyQueue {
	q := readyQueue{nodes: make([]queueNode, size)}
	q.reset()
	return q
}

func (q *readyQueue) reset() {
	for i := range q.nodes {
		q.nodes[i] = queueNode{next: none}
	}
	q.head = none
}

// push appends tid, reporting false when every node is in use.
func (q *readyQueue) push(tid int) bool {
	n := q.alloc()
	if n == none {
		return false
	}
	q.nodes[n] = queueNode{valid: true, tid: tid, next: none}

	if q.head == none {
		q.head = n
		return true
	}
	last := q.head
	for q.nodes[last].next != none {
		last = q.nodes[last].next
	}
	q.nodes[last].next = n
	return true
}

func (q *readyQueue) alloc() int {
	for i := range q.nodes {
		if !q.nodes[i].valid {
			return i
		}
	}
	return none
}

// remove unlinks tid from wherever it sits, keeping the order of the rest.
func (q *readyQueue) remove(tid int) bool {
	prev := none
	for n := q.head; n != none; n = q.nodes[n].next {
		if q.nodes[n].tid != tid {
			prev = n
			continue
		}
		if prev == none {
			q.head = q.nodes[n].next
		} else {
			q.nodes[prev].next = q.nodes[n].next
		}
		q.nodes[n] = queueNode{next: none}
		return true
	}
	return false
}

// front returns the longest-waiting thread id.
func (q *readyQueue) front() (int, bool) {
	if q.head == none {
		return 0, false
	}
	return q.nodes[q.head].tid, true
}

func (q *readyQueue) count() int {
	n := 0
	for i := range q.nodes {
		if q.nodes[i].valid {
			n++
		}
	}
	return n
}

func (q *readyQueue) ids() []int {
	var out []int
	for n := q.head; n != none; n = q.nodes[n].next {
		out = append(out, q.nodes[n].tid)
	}
	return out
}
