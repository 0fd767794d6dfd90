package reminders

// entry is one element of the ready queue. The engine's registry points at
// the entry that currently represents each id, so a popped entry is live iff
// it is the exact instance registered under its id. Superseded entries stay
// in the heap as tombstones and are discarded when they surface.
type entry struct {
	reminder Reminder

	// index is the entry's current position in the heap slice.
	// Maintained by readyQueue.Swap; -1 once popped.
	index int
}

// readyQueue is a min-heap of entries ordered by due time, implementing
// heap.Interface. The same id may appear any number of times.
type readyQueue []*entry

func (q readyQueue) Len() int {
	return len(q)
}

func (q readyQueue) Less(i, j int) bool {
	return q[i].reminder.DueTime.Before(q[j].reminder.DueTime)
}

func (q readyQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *readyQueue) Push(x any) {
	en, ok := x.(*entry)
	if !ok {
		return
	}

	en.index = len(*q)
	*q = append(*q, en)
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	en := old[n-1]
	old[n-1] = nil
	en.index = -1
	*q = old[:n-1]

	return en
}
