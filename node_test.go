package treeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ask sends one operation to n and waits for its terminal reply.
func ask(t *testing.T, n *node, kind opKind, id int64, elem int) message {
	t.Helper()
	replies := make(chan message, 1)
	n.post(op{kind: kind, requester: replyRef(replies), id: id, elem: elem})
	return <-replies
}

func askContains(t *testing.T, n *node, id int64, elem int) bool {
	t.Helper()
	m := ask(t, n, opContains, id, elem)
	r, ok := m.(containsResult)
	require.True(t, ok, "expected containsResult, got %T", m)
	require.Equal(t, id, r.id)
	return r.found
}

func askFinished(t *testing.T, n *node, kind opKind, id int64, elem int) {
	t.Helper()
	m := ask(t, n, kind, id, elem)
	r, ok := m.(operationFinished)
	require.True(t, ok, "expected operationFinished, got %T", m)
	require.Equal(t, id, r.id)
}

func TestNodeDispatch(t *testing.T) {
	t.Parallel()
	root := newNode(5, false)
	defer root.post(stop{})

	assert.True(t, askContains(t, root, 1, 5))

	// Equal-key remove tombstones, equal-key insert revives.
	askFinished(t, root, opRemove, 2, 5)
	assert.False(t, askContains(t, root, 3, 5))
	askFinished(t, root, opInsert, 4, 5)
	assert.True(t, askContains(t, root, 5, 5))

	// Absent-child insert grows the tree on the correct side.
	askFinished(t, root, opInsert, 6, 3)
	askFinished(t, root, opInsert, 7, 8)
	assert.True(t, askContains(t, root, 8, 3))
	assert.True(t, askContains(t, root, 9, 8))

	// Absent-child contains and remove resolve at the leaf.
	assert.False(t, askContains(t, root, 10, 4))
	askFinished(t, root, opRemove, 11, 100)
	assert.False(t, askContains(t, root, 12, 100))
}

func TestCopyShortCircuit(t *testing.T) {
	t.Parallel()
	// A tombstoned node with no children has nothing to copy and must
	// not touch the target at all.
	n := newNode(0, true)
	defer n.post(stop{})

	replies := make(chan message, 1)
	n.post(copyTo{target: nil, replyTo: replyRef(replies)})
	m := <-replies
	fin, ok := m.(copyFinished)
	require.True(t, ok, "expected copyFinished, got %T", m)
	assert.Equal(t, ref(n), fin.from)
}

func TestCopySubtree(t *testing.T) {
	t.Parallel()
	root := newNode(5, false)
	defer root.post(stop{})
	askFinished(t, root, opInsert, 1, 3)
	askFinished(t, root, opInsert, 2, 8)
	askFinished(t, root, opInsert, 3, 7)
	askFinished(t, root, opRemove, 4, 8)

	target := newNode(0, true)
	defer target.post(stop{})
	replies := make(chan message, 1)
	root.post(copyTo{target: target, replyTo: replyRef(replies)})
	<-replies

	assert.True(t, askContains(t, target, 5, 5))
	assert.True(t, askContains(t, target, 6, 3))
	assert.True(t, askContains(t, target, 7, 7))
	assert.False(t, askContains(t, target, 8, 8))
}

func TestCopyTombstonedRootWithChildren(t *testing.T) {
	t.Parallel()
	// A tombstoned node still has to wait for its children: they may
	// hold live elements.
	root := newNode(5, false)
	defer root.post(stop{})
	askFinished(t, root, opRemove, 1, 5)
	askFinished(t, root, opInsert, 2, 3)
	askFinished(t, root, opInsert, 3, 8)

	target := newNode(0, true)
	defer target.post(stop{})
	replies := make(chan message, 1)
	root.post(copyTo{target: target, replyTo: replyRef(replies)})
	<-replies

	assert.False(t, askContains(t, target, 4, 5))
	assert.True(t, askContains(t, target, 5, 3))
	assert.True(t, askContains(t, target, 6, 8))
}

func TestNodeServiceableAfterCopy(t *testing.T) {
	t.Parallel()
	root := newNode(5, false)
	defer root.post(stop{})
	askFinished(t, root, opInsert, 1, 3)

	target := newNode(0, true)
	defer target.post(stop{})
	replies := make(chan message, 1)
	root.post(copyTo{target: target, replyTo: replyRef(replies)})
	<-replies

	// The source tree answers operations again once its copy is done,
	// which is what keeps snapshots non-disruptive.
	assert.True(t, askContains(t, root, 2, 5))
	askFinished(t, root, opInsert, 3, 4)
	assert.True(t, askContains(t, root, 4, 4))
}
