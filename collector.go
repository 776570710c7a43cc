package treeset

import "sort"

// drain asks a collector for everything it has gathered, after which the
// collector shuts down.
type drain struct {
	elems chan<- []int
}

func (drain) isMessage() {}

// collector is a copy target that records elements instead of growing a
// tree. Pointing the copy protocol at one of these turns a collection
// cycle into a snapshot: source nodes insert their live elements here and
// get the same confirmations a fresh root would send.
type collector struct {
	mb    *mailbox
	elems []int
}

func newCollector() *collector {
	c := &collector{mb: newMailbox()}
	go c.run()
	return c
}

func (c *collector) post(m message) {
	c.mb.post(m)
}

func (c *collector) run() {
	for m := range c.mb.out {
		switch m := m.(type) {
		case op:
			// Only inserts arrive here, one per live element of the
			// source tree, so there are no duplicates to weed out.
			c.elems = append(c.elems, m.elem)
			m.requester.post(operationFinished{id: m.id})
		case drain:
			sort.Ints(c.elems)
			m.elems <- c.elems
			c.mb.stop()
		case stop:
			c.mb.stop()
		}
	}
}
