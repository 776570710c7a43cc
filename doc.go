/*
Package treeset provides a concurrent mutable set of integers built as a
tree of independent, sequentially-processing actors.  Every element lives
in its own node process (a goroutine with an unbounded FIFO mailbox), and
nodes coordinate only by asynchronous messages, so the set never takes a
lock and no operation ever blocks another inside the tree.

# How it works

Requests enter through a manager process that forwards them to the root
node.  Each node compares the requested element with its own and either
answers directly or passes the request to the left or right child; the
reply routes straight back to the original requester, not through the
intermediate nodes.  Remove does not restructure the tree: it only flips
a tombstone flag on the matching node, so the tree's shape stays a valid
binary search tree at all times.

# Compaction

Tombstoned nodes are reclaimed by Compact(), which copies all live
elements into a fresh tree while the manager buffers incoming requests,
then swaps the roots, terminates the old tree, and replays the buffered
requests in arrival order.  Every accepted request yields exactly one
reply, whether or not a compaction was running when it arrived.

# Snapshots

The same copy protocol that rebuilds a compacted tree can aim its output
at a collector instead of a fresh root, which is how Save() captures the
live elements without pausing the set.  Snapshots are content-addressed
(BLAKE2b over the sorted elements) and can be stored in anything that
implements Persist: see NewInMemoryStore, and the persist/file and
persist/s3 submodules.
*/
package treeset
