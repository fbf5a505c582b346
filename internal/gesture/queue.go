package gesture

import (
	"log"

	"gestured/internal/protocol"
)

// Queue is the bounded multi-producer, single-consumer command FIFO between
// the transport listeners and the execution worker.
//
// Backpressure policy: shed load, don't stall ingestion. Enqueue never blocks;
// when the queue is full the incoming command is dropped and counted.
type Queue struct {
	ch      chan *protocol.Command
	monitor *Monitor
}

// NewQueue creates a queue with the given fixed capacity.
func NewQueue(capacity int, monitor *Monitor) *Queue {
	return &Queue{
		ch:      make(chan *protocol.Command, capacity),
		monitor: monitor,
	}
}

// Enqueue hands a command to the worker without waiting for execution.
// Returns false when the command was dropped because the queue is full.
func (q *Queue) Enqueue(cmd *protocol.Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		log.Printf("Queue: full, dropping command %s", cmd.ID)
		q.monitor.RecordDrop()
		return false
	}
}

// Dequeue blocks until a command is available or stop is closed.
func (q *Queue) Dequeue(stop <-chan struct{}) (*protocol.Command, bool) {
	select {
	case cmd := <-q.ch:
		return cmd, true
	case <-stop:
		return nil, false
	}
}

// Len reports the number of commands currently resident.
func (q *Queue) Len() int {
	return len(q.ch)
}
