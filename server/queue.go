package server

import (
	"container/heap"
	"math"
	"sync"

	"github.com/always-cache/filehttp/pkg/message"
)

const sentinelSeq = math.MaxInt64

type queueEntry struct {
	seq     int64
	interim bool
	res     *message.Response
}

type entryHeap []queueEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].seq != h[j].seq {
		return h[i].seq < h[j].seq
	}
	// interim responses go out before the final one
	return h[i].interim && !h[j].interim
}
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(queueEntry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// orderingQueue releases responses in request order regardless of the order
// in which their handlers finish. Producers never block; the single consumer
// waits until the response with the next sequence number is available.
type orderingQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries entryHeap
	next    int64
}

func newOrderingQueue() *orderingQueue {
	q := &orderingQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push adds the final response for request seq.
func (q *orderingQueue) push(seq int64, res *message.Response) {
	q.add(queueEntry{seq: seq, res: res})
}

// pushInterim adds a 1xx response for request seq. It is released before
// the final response of the same request and does not advance the sequence.
func (q *orderingQueue) pushInterim(seq int64, res *message.Response) {
	q.add(queueEntry{seq: seq, interim: true, res: res})
}

// close marks the end of the stream. It must be called after every
// sequence number handed out has been pushed.
func (q *orderingQueue) close() {
	q.add(queueEntry{seq: sentinelSeq})
}

func (q *orderingQueue) add(e queueEntry) {
	q.mu.Lock()
	heap.Push(&q.entries, e)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until the next response is due and returns it.
// ok is false once the end of the stream is reached.
func (q *orderingQueue) pop() (res *message.Response, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.entries) > 0 {
			head := q.entries[0]
			if head.seq == sentinelSeq {
				heap.Pop(&q.entries)
				return nil, false
			}
			if head.seq == q.next {
				heap.Pop(&q.entries)
				if !head.interim {
					q.next++
				}
				return head.res, true
			}
		}
		q.cond.Wait()
	}
}
