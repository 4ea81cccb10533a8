package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Node IDs per process type. Each running process needs a distinct node
// so concurrently generated IDs never collide.
const (
	NodeServer int64 = 1
	NodeWorker int64 = 2
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init configures the process-wide Snowflake node. Subsequent calls are
// no-ops, so the first node ID wins.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a time-ordered int64 ID. Init must have been called first.
func New() int64 {
	return node.Generate().Int64()
}
