package services

import "log"

// Notifier receives a signal after a review transition commits, so read
// paths (task list, review list) can invalidate cached views. Delivery is
// fire-and-forget and outside the transactional guarantee.
type Notifier interface {
	ReviewChanged(taskID uint64)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(taskID uint64)

func (f NotifierFunc) ReviewChanged(taskID uint64) {
	f(taskID)
}

// LogNotifier logs review transitions; the default when nothing else is
// registered.
type LogNotifier struct{}

func (LogNotifier) ReviewChanged(taskID uint64) {
	log.Printf("review state changed for task %d", taskID)
}
