package ecs

import (
	"slices"
	"sync"
	"time"
)

// MessageQueueType selects when in the frame a posted message is delivered.
type MessageQueueType int

const (
	// QueueNextFrame delivers at the start of the next update.
	QueueNextFrame MessageQueueType = iota
	// QueuePostAsync delivers after the async phase of the current or next
	// update.
	QueuePostAsync
	// QueuePostTransform delivers after transforms have been propagated.
	QueuePostTransform
	// QueueAfterInitialized delivers once every queued component has been
	// initialized, at the start or the end of an update.
	QueueAfterInitialized

	queueTypeCount
)

func (q MessageQueueType) String() string {
	switch q {
	case QueueNextFrame:
		return "NextFrame"
	case QueuePostAsync:
		return "PostAsync"
	case QueuePostTransform:
		return "PostTransform"
	case QueueAfterInitialized:
		return "AfterInitialized"
	default:
		return "Unknown"
	}
}

type queuedMessage struct {
	object    GameObjectHandle
	component ComponentHandle
	routing   MessageRouting
	msg       Message
	due       time.Duration
	seq       uint64
}

type messageQueues struct {
	mu     sync.Mutex
	queues [queueTypeCount][]queuedMessage
	seq    uint64
}

func (q *messageQueues) push(queue MessageQueueType, m queuedMessage) {
	q.mu.Lock()
	q.seq++
	m.seq = q.seq
	q.queues[queue] = append(q.queues[queue], m)
	q.mu.Unlock()
}

// takeDue removes and returns the messages of a queue that are due, sorted
// by due time and then by posting order.
func (q *messageQueues) takeDue(queue MessageQueueType, now time.Duration) []queuedMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.queues[queue]
	if len(pending) == 0 {
		return nil
	}

	var due []queuedMessage
	kept := pending[:0]
	for _, m := range pending {
		if m.due <= now {
			due = append(due, m)
		} else {
			kept = append(kept, m)
		}
	}
	clear(pending[len(kept):])
	q.queues[queue] = kept

	slices.SortFunc(due, func(a, b queuedMessage) int {
		if a.due != b.due {
			if a.due < b.due {
				return -1
			}
			return 1
		}
		if a.seq < b.seq {
			return -1
		}
		if a.seq > b.seq {
			return 1
		}
		return 0
	})
	return due
}

func (q *messageQueues) pending(queue MessageQueueType) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[queue])
}

func (q *messageQueues) deliver(w *World, queue MessageQueueType) {
	for _, m := range q.takeDue(queue, w.clock.AccumulatedTime()) {
		if del, ok := m.msg.(*deleteObjectMessage); ok {
			w.DeleteObjectNow(m.object, del.deleteEmptyParents)
			continue
		}
		if m.component.IsValid() {
			w.SendMessageToComponent(m.component, m.msg)
		} else {
			w.SendMessage(m.object, m.msg, m.routing)
		}
	}
}

// PostMessage queues msg for delivery to the object h. The message is
// delivered at the point of the frame selected by queue, once delay has
// passed on the world clock. PostMessage may be called from async update
// functions.
func (w *World) PostMessage(h GameObjectHandle, msg Message, routing MessageRouting, queue MessageQueueType, delay time.Duration) {
	w.messages.push(queue, queuedMessage{
		object:  h,
		routing: routing,
		msg:     msg,
		due:     w.clock.AccumulatedTime() + delay,
	})
}

// PostMessageToComponent queues msg for delivery to a single component.
func (w *World) PostMessageToComponent(h ComponentHandle, msg Message, queue MessageQueueType, delay time.Duration) {
	w.messages.push(queue, queuedMessage{
		component: h,
		msg:       msg,
		due:       w.clock.AccumulatedTime() + delay,
	})
}

// PendingMessageCount returns the number of queued messages of a queue.
func (w *World) PendingMessageCount(queue MessageQueueType) int {
	return w.messages.pending(queue)
}
