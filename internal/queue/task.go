package queue

type TaskType string

const (
	// TaskTypeMessageFanout delivers a newly inserted message to its
	// recipients: notification rows, search indexing.
	TaskTypeMessageFanout TaskType = "message_fanout"
	// TaskTypeThreadRead clears notification rows after a thread was
	// marked read.
	TaskTypeThreadRead TaskType = "thread_read"
)
