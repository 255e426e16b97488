package testutil

import (
	"github.com/nsqio/go-nsq"
	"time"
)

// NSQTestDelegate captures what a worker does with an NSQ message,
// so tests can check whether a package was finished, requeued or
// touched. It implements go-nsq's MessageDelegate interface.
type NSQTestDelegate struct {
	Message    *nsq.Message
	Delay      time.Duration
	Backoff    bool
	Operation  string
	TouchCount int
}

// NewNSQTestDelegate returns a pointer to a new NSQTestDelegate.
func NewNSQTestDelegate() *NSQTestDelegate {
	return &NSQTestDelegate{}
}

// OnFinish receives the Finish() call from an NSQ message.
func (delegate *NSQTestDelegate) OnFinish(message *nsq.Message) {
	delegate.Message = message
	delegate.Operation = "finish"
}

// OnRequeue receives the Requeue() call from an NSQ message.
func (delegate *NSQTestDelegate) OnRequeue(message *nsq.Message, delay time.Duration, backoff bool) {
	delegate.Message = message
	delegate.Delay = delay
	delegate.Backoff = backoff
	delegate.Operation = "requeue"
}

// OnTouch receives the Touch() call from an NSQ message. Touches
// don't overwrite a finish or requeue.
func (delegate *NSQTestDelegate) OnTouch(message *nsq.Message) {
	delegate.Message = message
	delegate.TouchCount++
	if delegate.Operation == "" {
		delegate.Operation = "touch"
	}
}
