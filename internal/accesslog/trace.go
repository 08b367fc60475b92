package accesslog

// TraceNode is a node in a request's diagnostic trace tree.
type TraceNode struct {
	message   string
	timestamp int64
	children  []*TraceNode
}

// NewTraceNode creates a trace node with a message and a timestamp in
// milliseconds.
func NewTraceNode(message string, timestamp int64) *TraceNode {
	return &TraceNode{message: message, timestamp: timestamp}
}

// Add appends a child node and returns it.
func (n *TraceNode) Add(child *TraceNode) *TraceNode {
	n.children = append(n.children, child)
	return child
}

// Message returns the node message.
func (n *TraceNode) Message() string { return n.message }

// Timestamp returns the node timestamp in milliseconds.
func (n *TraceNode) Timestamp() int64 { return n.timestamp }

// Children returns the child nodes.
func (n *TraceNode) Children() []*TraceNode { return n.children }
