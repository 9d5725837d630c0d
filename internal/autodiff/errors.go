package autodiff

import (
	"fmt"
)

// NodeError reports a kernel failure while executing a node.
type NodeError struct {
	Node NodeHandle
	Op   string
	Pass string // "forward" or "backward"
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s pass failed at node %d (%s): %v", e.Pass, e.Node, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// HandleError reports a handle that does not belong to the graph.
type HandleError struct {
	Handle NodeHandle
	Len    int
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("invalid node handle %d (graph has %d nodes)", e.Handle, e.Len)
}

// KindError reports a node used in a way its kind does not allow, such as
// seeding values into an operation node.
type KindError struct {
	Handle NodeHandle
	Want   string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("node %d is not a %s", e.Handle, e.Want)
}
