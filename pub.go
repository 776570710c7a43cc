package treeset

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-kit/kit/log"
	"github.com/minio/blake2b-simd"
)

// ErrClosed is returned by operations on a Set whose Close has begun.
var ErrClosed = errors.New("set is closed")

// Config carries the optional collaborators for a Set. The zero value is
// usable: a nop logger and discarded metrics.
type Config struct {
	Logger  log.Logger
	Metrics *Metrics
}

// Persist is the interface for loading and storing encoded snapshots. The
// given string identity is derived from the content, which is immutable
// (never modified).
type Persist interface {
	// Store makes the given bytes accessible by the given name.
	Store(context.Context, string, []byte) error
	// Load retrieves the previously-stored bytes by the given name.
	Load(context.Context, string) ([]byte, error)
}

// RemoteConfig controls how snapshots are persisted and loaded.
type RemoteConfig struct {
	// StoreWith is used to store and load encoded snapshots.
	StoreWith Persist

	// Format selects the snapshot encoding; defaults to V1JSON.
	Format SnapshotFormat

	// SnapshotCache caches decoded snapshots and may be shared across
	// multiple Sets.
	SnapshotCache SnapshotCache
}

// Root identifies a snapshot whose encoding is accessible in the
// persistent store. Equal sets saved with the same format produce equal
// links.
type Root struct {
	Link *string
	Size uint64
}

// Set is a concurrent mutable set of integers. All methods are safe for
// use from any number of goroutines; no method blocks any other inside
// the tree.
type Set struct {
	mgr    *manager
	lastID int64
}

// New spawns a Set's manager and its initial empty root.
func New(config Config) *Set {
	logger := config.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	m := config.Metrics
	if m == nil {
		m = NewMetrics()
	}
	return &Set{mgr: newManager(newNode(0, true), logger, m)}
}

// Insert adds elem to the set. Inserting an element that is already
// present is a no-op.
func (s *Set) Insert(ctx context.Context, elem int) error {
	_, err := s.request(ctx, opInsert, elem)
	return err
}

// Contains reports whether elem is in the set.
func (s *Set) Contains(ctx context.Context, elem int) (bool, error) {
	return s.request(ctx, opContains, elem)
}

// Remove takes elem out of the set. Removing an absent element is a
// no-op. The element's node stays in the tree as a tombstone until the
// next compaction.
func (s *Set) Remove(ctx context.Context, elem int) error {
	_, err := s.request(ctx, opRemove, elem)
	return err
}

// Compact triggers a compaction cycle that rebuilds the tree without
// tombstones. It returns immediately; requests issued during the cycle
// are buffered and replayed in arrival order, so callers observe no
// difference beyond latency. A Compact while a cycle is already running
// is a no-op.
func (s *Set) Compact() {
	s.mgr.post(gcRequest{})
}

// Close terminates the manager and every node, and returns once the
// manager has shut down. Requests still in flight may be dropped;
// requests issued after Close return ErrClosed.
func (s *Set) Close() {
	s.mgr.post(stop{})
	<-s.mgr.mb.done
}

func (s *Set) request(ctx context.Context, kind opKind, elem int) (bool, error) {
	id := atomic.AddInt64(&s.lastID, 1)
	replies := make(chan message, 1)
	if !s.mgr.mb.post(op{kind: kind, requester: replyRef(replies), id: id, elem: elem}) {
		return false, ErrClosed
	}
	select {
	case m := <-replies:
		switch m := m.(type) {
		case containsResult:
			if m.id != id {
				return false, fmt.Errorf("reply id %d does not match request id %d", m.id, id)
			}
			return m.found, nil
		case operationFinished:
			if m.id != id {
				return false, fmt.Errorf("reply id %d does not match request id %d", m.id, id)
			}
			return false, nil
		default:
			return false, fmt.Errorf("unexpected reply type %T", m)
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Save snapshots the set's live elements and writes the encoding to the
// configured store, returning a Root that identifies it. The set stays
// fully available: requests arriving during the snapshot are buffered
// and replayed just as during a compaction.
func (s *Set) Save(ctx context.Context, config *RemoteConfig) (*Root, error) {
	if config == nil || config.StoreWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set RemoteConfig.StoreWith")
	}
	elems := make(chan []int, 1)
	if !s.mgr.mb.post(snapshotRequest{elems: elems}) {
		return nil, ErrClosed
	}
	var snapshot []int
	select {
	case gathered, ok := <-elems:
		if !ok {
			return nil, ErrClosed
		}
		snapshot = gathered
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	encoded, err := encodeSnapshot(snapshot, config.Format)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	hashBytes := blake2b.Sum256(encoded)
	link := base64.RawURLEncoding.EncodeToString(hashBytes[:])
	root := Root{Link: &link, Size: uint64(len(snapshot))}
	if config.SnapshotCache != nil && config.SnapshotCache.Contains(link) {
		return &root, nil
	}
	if err := config.StoreWith.Store(ctx, link, encoded); err != nil {
		return nil, fmt.Errorf("persist store: %w", err)
	}
	if config.SnapshotCache != nil {
		config.SnapshotCache.Add(link, snapshot)
	}
	return &root, nil
}

// LoadSet builds a new Set containing the elements of the snapshot this
// Root identifies. A Root with a nil Link loads as an empty Set.
func (r *Root) LoadSet(ctx context.Context, remote *RemoteConfig, config Config) (*Set, error) {
	s := New(config)
	if r.Link == nil {
		return s, nil
	}
	elems, err := loadSnapshot(ctx, remote, *r.Link)
	if err != nil {
		s.Close()
		return nil, err
	}
	for _, elem := range elems {
		if err := s.Insert(ctx, elem); err != nil {
			s.Close()
			return nil, fmt.Errorf("insert %d: %w", elem, err)
		}
	}
	return s, nil
}

func loadSnapshot(ctx context.Context, remote *RemoteConfig, link string) ([]int, error) {
	if remote == nil || remote.StoreWith == nil {
		return nil, fmt.Errorf("no persistence mechanism set; set RemoteConfig.StoreWith")
	}
	if remote.SnapshotCache != nil {
		if cached, ok := remote.SnapshotCache.Get(link); ok {
			return cached.([]int), nil
		}
	}
	encoded, err := remote.StoreWith.Load(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("persist load %s: %w", link, err)
	}
	elems, err := decodeSnapshot(encoded, remote.Format)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", link, err)
	}
	if remote.SnapshotCache != nil {
		remote.SnapshotCache.Add(link, elems)
	}
	return elems, nil
}
