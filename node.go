package treeset

// copyInsertID is the correlation id a node uses when inserting its own
// element into a copy target. It never reaches an external requester.
const copyInsertID = 1

// copying is the state a node holds between receiving copyTo and having
// copied its whole subtree. The node is done when its own element's
// insertion is confirmed and every child in expected has reported in.
type copying struct {
	requester       ref
	expected        map[*node]struct{}
	insertConfirmed bool
}

// node is one element's process. elem never changes; removed is the
// tombstone that stands in for structural deletion. Each subtree position
// holds at most one child.
type node struct {
	elem     int
	removed  bool
	subtrees map[position]*node

	mb *mailbox
}

// newNode spawns a node process. A node created with removed=true holds no
// live element of its own, which is how a fresh root starts out.
func newNode(elem int, removed bool) *node {
	n := &node{
		elem:     elem,
		removed:  removed,
		subtrees: map[position]*node{},
	}
	n.mb = newMailbox()
	go n.run()
	return n
}

func (n *node) post(m message) {
	n.mb.post(m)
}

// run services the node's mailbox one message at a time. cp is nil in
// normal mode; while it is set the node expects only copy-protocol
// replies, never fresh operations, because the manager buffers requests
// for the whole collection cycle.
func (n *node) run() {
	var cp *copying
	for m := range n.mb.out {
		switch m := m.(type) {
		case op:
			n.dispatch(m)
		case copyTo:
			cp = n.startCopy(m)
		case operationFinished:
			if cp != nil {
				cp.insertConfirmed = true
				cp = n.finishIfCopied(cp)
			}
		case copyFinished:
			if cp != nil {
				if child, ok := m.from.(*node); ok {
					delete(cp.expected, child)
				}
				cp = n.finishIfCopied(cp)
			}
		case stop:
			for _, child := range n.subtrees {
				child.post(stop{})
			}
			n.mb.stop()
		}
	}
}

// dispatch resolves an operation at this node or hands it down the tree.
// The reply routes directly to the original requester from wherever the
// operation terminates.
func (n *node) dispatch(m op) {
	if m.elem == n.elem {
		switch m.kind {
		case opInsert:
			n.removed = false
			m.requester.post(operationFinished{id: m.id})
		case opContains:
			m.requester.post(containsResult{id: m.id, found: !n.removed})
		case opRemove:
			n.removed = true
			m.requester.post(operationFinished{id: m.id})
		}
		return
	}
	pos := right
	if m.elem < n.elem {
		pos = left
	}
	if child, ok := n.subtrees[pos]; ok {
		child.post(m)
		return
	}
	switch m.kind {
	case opInsert:
		n.subtrees[pos] = newNode(m.elem, false)
		m.requester.post(operationFinished{id: m.id})
	case opContains:
		m.requester.post(containsResult{id: m.id, found: false})
	case opRemove:
		// Element was never present; removing it is a no-op.
		m.requester.post(operationFinished{id: m.id})
	}
}

// startCopy begins this subtree's part of a collection cycle: insert the
// node's own element into the target (unless tombstoned) and fan copyTo
// out to the children. A tombstoned node with no children has nothing to
// contribute and reports finished on the spot.
func (n *node) startCopy(m copyTo) *copying {
	if n.removed && len(n.subtrees) == 0 {
		m.replyTo.post(copyFinished{from: n})
		return nil
	}
	if !n.removed {
		m.target.post(op{kind: opInsert, requester: n, id: copyInsertID, elem: n.elem})
	}
	cp := &copying{
		requester:       m.replyTo,
		expected:        make(map[*node]struct{}, len(n.subtrees)),
		insertConfirmed: n.removed,
	}
	for _, child := range n.subtrees {
		child.post(copyTo{target: m.target, replyTo: n})
		cp.expected[child] = struct{}{}
	}
	return cp
}

// finishIfCopied reports the subtree complete once all children have and
// the node's own insertion is confirmed, and drops back to normal mode.
// Reverting is unobservable during compaction (the old tree is about to
// be terminated) and lets snapshots leave the source tree serviceable.
func (n *node) finishIfCopied(cp *copying) *copying {
	if cp.insertConfirmed && len(cp.expected) == 0 {
		cp.requester.post(copyFinished{from: n})
		return nil
	}
	return cp
}
