package treeset

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// collection is the state of one in-flight copy cycle. Exactly one of
// newRoot (compaction) and gather (snapshot) is set.
type collection struct {
	oldRoot ref
	newRoot *node
	gather  *collector
	reply   chan<- []int
}

// manager owns the current root and the collection state machine. It
// never looks inside the tree: in normal mode operations pass straight
// through to the root, and while a collection is in flight they queue up
// for replay.
type manager struct {
	mb *mailbox

	root        ref
	rootCounter int
	pending     []op
	collecting  *collection
	snapshots   []snapshotRequest

	logger  log.Logger
	metrics *Metrics
}

// newManager spawns the manager process around the given root. Production
// roots are nodes; tests may interpose any ref.
func newManager(root ref, logger log.Logger, metrics *Metrics) *manager {
	mgr := &manager{
		root:        root,
		rootCounter: 1,
		logger:      logger,
		metrics:     metrics,
	}
	mgr.mb = newMailbox()
	go mgr.run()
	return mgr
}

func (mgr *manager) post(m message) {
	mgr.mb.post(m)
}

func (mgr *manager) run() {
	for m := range mgr.mb.out {
		switch m := m.(type) {
		case op:
			mgr.count(m.kind)
			if mgr.collecting != nil {
				mgr.pending = append(mgr.pending, m)
				mgr.metrics.Buffered.Add(1)
				continue
			}
			mgr.root.post(m)
		case gcRequest:
			if mgr.collecting != nil {
				level.Debug(mgr.logger).Log("msg", "compaction requested while collecting, ignored")
				continue
			}
			mgr.startCompaction()
		case snapshotRequest:
			if mgr.collecting != nil {
				mgr.snapshots = append(mgr.snapshots, m)
				continue
			}
			mgr.startSnapshot(m)
		case copyFinished:
			if mgr.collecting == nil || m.from != mgr.collecting.oldRoot {
				continue
			}
			mgr.finishCollection()
		case stop:
			if mgr.collecting != nil {
				if mgr.collecting.newRoot != nil {
					mgr.collecting.newRoot.post(stop{})
				}
				if mgr.collecting.gather != nil {
					mgr.collecting.gather.post(stop{})
					close(mgr.collecting.reply)
				}
			}
			// A Save waiting behind the in-flight cycle would otherwise
			// block forever; a closed reply channel tells it the set is
			// gone.
			for _, queued := range mgr.snapshots {
				close(queued.elems)
			}
			mgr.snapshots = nil
			mgr.root.post(stop{})
			mgr.mb.stop()
		}
	}
}

// startCompaction spawns a fresh tombstoned root and asks the old tree to
// copy its live elements into it. The swap happens when the old root
// reports copyFinished.
func (mgr *manager) startCompaction() {
	mgr.rootCounter++
	newRoot := newNode(0, true)
	mgr.collecting = &collection{oldRoot: mgr.root, newRoot: newRoot}
	mgr.root.post(copyTo{target: newRoot, replyTo: mgr})
	mgr.metrics.Collections.Add(1)
	level.Debug(mgr.logger).Log("msg", "compaction started", "root", mgr.rootCounter)
}

// startSnapshot runs the copy protocol against a collector, leaving the
// current tree in place.
func (mgr *manager) startSnapshot(m snapshotRequest) {
	gather := newCollector()
	mgr.collecting = &collection{oldRoot: mgr.root, gather: gather, reply: m.elems}
	mgr.root.post(copyTo{target: gather, replyTo: mgr})
	mgr.metrics.Snapshots.Add(1)
	level.Debug(mgr.logger).Log("msg", "snapshot started")
}

// finishCollection swaps in the new root (or delivers the gathered
// elements), replays everything buffered during the cycle in arrival
// order, and starts the next queued snapshot, if any.
func (mgr *manager) finishCollection() {
	cycle := mgr.collecting
	mgr.collecting = nil
	if cycle.newRoot != nil {
		cycle.oldRoot.post(stop{})
		mgr.root = cycle.newRoot
		level.Info(mgr.logger).Log("msg", "compaction finished", "root", mgr.rootCounter, "replaying", len(mgr.pending))
	} else {
		elems := make(chan []int, 1)
		cycle.gather.post(drain{elems: elems})
		cycle.reply <- <-elems
		level.Debug(mgr.logger).Log("msg", "snapshot finished", "replaying", len(mgr.pending))
	}
	for _, m := range mgr.pending {
		mgr.root.post(m)
	}
	mgr.pending = nil
	if len(mgr.snapshots) > 0 {
		next := mgr.snapshots[0]
		mgr.snapshots = mgr.snapshots[1:]
		mgr.startSnapshot(next)
	}
}

func (mgr *manager) count(kind opKind) {
	switch kind {
	case opInsert:
		mgr.metrics.Inserts.Add(1)
	case opContains:
		mgr.metrics.Contains.Add(1)
	case opRemove:
		mgr.metrics.Removes.Add(1)
	}
}
