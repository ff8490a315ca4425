package reliable

import "time"

// entry is the engine's bookkeeping for one pending request.
type entry struct {
	req   PendingRequest
	peer  Transport
	index int

	done chan struct{}
	err  error
}

// resendQueue is a min-heap of entries by due time, ties broken by sequence
// number.
type resendQueue []*entry

func (q resendQueue) Len() int { return len(q) }

func (q resendQueue) Less(i, j int) bool {
	if !q[i].req.Due.Equal(q[j].req.Due) {
		return q[i].req.Due.Before(q[j].req.Due)
	}
	return q[i].req.Seq < q[j].req.Seq
}

func (q resendQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *resendQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *resendQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

func (q resendQueue) next() (time.Time, bool) {
	if len(q) == 0 {
		return time.Time{}, false
	}
	return q[0].req.Due, true
}
