package treeset

// opKind distinguishes the three set operations. The original design used
// one strategy object per operation; a closed enum plus a switch covers the
// same ground and lets the compiler check exhaustiveness.
type opKind int

const (
	opInsert opKind = iota
	opContains
	opRemove
)

func (k opKind) String() string {
	switch k {
	case opInsert:
		return "insert"
	case opContains:
		return "contains"
	case opRemove:
		return "remove"
	}
	return "unknown"
}

// position is the branch an element belongs to relative to a node's own
// element.
type position int

const (
	left position = iota
	right
)

// ref is anything with a mailbox: a node, the manager, a snapshot
// collector, or a client-side reply slot.
type ref interface {
	post(message)
}

// message is the closed union of everything that crosses a mailbox.
type message interface {
	isMessage()
}

// op is a set operation in flight. The reply, carrying the same id, goes
// directly from whichever process resolves the operation to requester.
type op struct {
	kind      opKind
	requester ref
	id        int64
	elem      int
}

// containsResult is the terminal reply to a contains op.
type containsResult struct {
	id    int64
	found bool
}

// operationFinished is the terminal reply to an insert or remove op. It is
// also used internally: a node copying itself into a new tree names itself
// as requester and waits for this confirmation.
type operationFinished struct {
	id int64
}

// copyTo asks the receiving node to copy its subtree's live elements into
// target, and to report completion to replyTo with copyFinished.
type copyTo struct {
	target  ref
	replyTo ref
}

// copyFinished reports that from's entire subtree has finished copying.
type copyFinished struct {
	from ref
}

// gcRequest triggers a compaction cycle. Ignored if one is already
// running.
type gcRequest struct{}

// snapshotRequest asks the manager for the set's live elements. The reply
// is a sorted slice sent on elems. Queued if a collection is in flight.
type snapshotRequest struct {
	elems chan<- []int
}

// stop terminates the receiving process. A node forwards stop to its
// children first, so retiring a root retires the whole tree under it.
type stop struct{}

func (op) isMessage()                {}
func (containsResult) isMessage()    {}
func (operationFinished) isMessage() {}
func (copyTo) isMessage()            {}
func (copyFinished) isMessage()      {}
func (gcRequest) isMessage()         {}
func (snapshotRequest) isMessage()   {}
func (stop) isMessage()              {}

// mailbox is an unbounded FIFO queue between processes. Sends never
// deadlock against other process mailboxes: the pump goroutine is always
// ready to take another message while earlier ones wait to be consumed.
type mailbox struct {
	in   chan message
	out  chan message
	done chan struct{}
}

func newMailbox() *mailbox {
	mb := &mailbox{
		in:   make(chan message),
		out:  make(chan message),
		done: make(chan struct{}),
	}
	go mb.pump()
	return mb
}

func (mb *mailbox) pump() {
	var queue []message
	for {
		var deliver chan message
		var next message
		if len(queue) > 0 {
			deliver = mb.out
			next = queue[0]
		}
		select {
		case <-mb.done:
			close(mb.out)
			return
		case m := <-mb.in:
			queue = append(queue, m)
		case deliver <- next:
			queue = queue[1:]
		}
	}
}

// post delivers m unless the mailbox has stopped, and reports which.
// Peers of a retired process may still hold its reference and send late
// copy-protocol traffic; those messages are dropped.
func (mb *mailbox) post(m message) bool {
	select {
	case mb.in <- m:
		return true
	case <-mb.done:
		return false
	}
}

// stop makes the mailbox discard everything still queued or posted
// later, and closes the receive end. Only the owning process calls stop,
// exactly once, while handling its stop message.
func (mb *mailbox) stop() {
	close(mb.done)
}

// replyRef adapts a buffered channel to ref so a client can be named as a
// requester. The channel must have capacity for the single terminal reply.
type replyRef chan<- message

func (r replyRef) post(m message) {
	r <- m
}
