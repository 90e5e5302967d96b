package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type memStore struct {
	name   string
	mu     sync.Mutex
	docs   map[Collection][]byte
	putErr error
	getErr error
	puts   int
}

func newMemStore(name string) *memStore {
	return &memStore{name: name, docs: make(map[Collection][]byte)}
}

func (m *memStore) Name() string { return m.name }

func (m *memStore) Put(_ context.Context, name Collection, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.docs[name] = append([]byte(nil), doc...)
	return nil
}

func (m *memStore) Get(_ context.Context, name Collection) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[name]
	if !ok {
		return nil, ErrNoDocument
	}
	return doc, nil
}

type chanBroadcaster struct {
	mu        sync.Mutex
	published map[Collection][][]byte
	feed      chan []byte
	pubErr    error
}

func newChanBroadcaster() *chanBroadcaster {
	return &chanBroadcaster{published: make(map[Collection][][]byte), feed: make(chan []byte, 8)}
}

func (b *chanBroadcaster) Publish(_ context.Context, name Collection, doc []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubErr != nil {
		return b.pubErr
	}
	b.published[name] = append(b.published[name], doc)
	return nil
}

func (b *chanBroadcaster) Subscribe(ctx context.Context, _ Collection) (<-chan []byte, func() error, error) {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-b.feed:
				out <- p
			}
		}
	}()
	return out, func() error { return nil }, nil
}

func (b *chanBroadcaster) count(name Collection) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[name])
}

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestShim(t *testing.T, primary, fallback DocumentStore, b Broadcaster) *Shim {
	return NewShim(ShimOptions{
		Primary:      primary,
		Fallback:     fallback,
		Broadcaster:  b,
		WriteTimeout: time.Second,
	}, logger.NewTestLogger(t))
}

// ==========================
// Save
// ==========================

func TestShimSave_PrimarySuccessPublishes(t *testing.T) {
	primary, fallback, bc := newMemStore("primary"), newMemStore("file"), newChanBroadcaster()
	shim := newTestShim(t, primary, fallback, bc)

	err := shim.Save(context.Background(), Buyers, []record{{ID: "b1", Name: "Ann"}})
	require.NoError(t, err)

	assert.JSONEq(t, `[{"id":"b1","name":"Ann"}]`, string(primary.docs[Buyers]))
	assert.Empty(t, fallback.docs)
	assert.Equal(t, 1, bc.count(Buyers))
}

func TestShimSave_FallsBackOnPrimaryFailure(t *testing.T) {
	primary, fallback, bc := newMemStore("primary"), newMemStore("file"), newChanBroadcaster()
	primary.putErr = assert.AnError
	shim := newTestShim(t, primary, fallback, bc)

	err := shim.Save(context.Background(), Leads, []record{{ID: "l1"}})
	require.NoError(t, err)

	assert.Contains(t, string(fallback.docs[Leads]), `"l1"`)
	assert.Equal(t, 0, bc.count(Leads))
	assert.Equal(t, 1, primary.puts)
}

func TestShimSave_BothStoresFail(t *testing.T) {
	primary, fallback := newMemStore("primary"), newMemStore("file")
	primary.putErr = assert.AnError
	fallback.putErr = assert.AnError
	shim := newTestShim(t, primary, fallback, nil)

	err := shim.Save(context.Background(), Contracts, []record{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFallbackWriteFailed, errors.AsStandardError(err).Code)
}

func TestShimSave_FallbackOnlyPublishes(t *testing.T) {
	fallback, bc := newMemStore("file"), newChanBroadcaster()
	shim := newTestShim(t, nil, fallback, bc)

	require.NoError(t, shim.Save(context.Background(), Properties, []record{{ID: "p1"}}))
	assert.Equal(t, 1, bc.count(Properties))
}

func TestShimSave_PublishFailureIsNotAnError(t *testing.T) {
	primary, bc := newMemStore("primary"), newChanBroadcaster()
	bc.pubErr = assert.AnError
	shim := newTestShim(t, primary, newMemStore("file"), bc)

	assert.NoError(t, shim.Save(context.Background(), Buyers, []record{}))
}

func TestShimSave_UnencodableItems(t *testing.T) {
	shim := newTestShim(t, newMemStore("primary"), newMemStore("file"), nil)

	err := shim.Save(context.Background(), Buyers, map[string]interface{}{"bad": make(chan int)})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeParseError, errors.AsStandardError(err).Code)
}

// ==========================
// Load
// ==========================

func TestLoad_PrefersPrimary(t *testing.T) {
	primary, fallback := newMemStore("primary"), newMemStore("file")
	primary.docs[Buyers] = []byte(`[{"id":"from-primary"}]`)
	fallback.docs[Buyers] = []byte(`[{"id":"from-file"}]`)
	shim := newTestShim(t, primary, fallback, nil)

	got := Load(context.Background(), shim, Buyers, []record{})
	require.Len(t, got, 1)
	assert.Equal(t, "from-primary", got[0].ID)
}

func TestLoad_UsesFallbackWhenPrimaryUnavailable(t *testing.T) {
	primary, fallback := newMemStore("primary"), newMemStore("file")
	primary.getErr = assert.AnError
	fallback.docs[Buyers] = []byte(`[{"id":"from-file"}]`)
	shim := newTestShim(t, primary, fallback, nil)

	got := Load[record](context.Background(), shim, Buyers, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "from-file", got[0].ID)
}

func TestLoad_DefaultOnAbsenceOrCorruption(t *testing.T) {
	def := []record{{ID: "seed"}}

	empty := newTestShim(t, newMemStore("primary"), newMemStore("file"), nil)
	assert.Equal(t, def, Load(context.Background(), empty, Leads, def))

	corrupt := newMemStore("primary")
	corrupt.docs[Leads] = []byte(`{not json`)
	assert.Equal(t, def, Load(context.Background(), newTestShim(t, corrupt, nil, nil), Leads, def))

	null := newMemStore("primary")
	null.docs[Leads] = []byte(`null`)
	assert.Equal(t, def, Load(context.Background(), newTestShim(t, null, nil, nil), Leads, def))
}

func TestLoad_EmptyListIsNotDefaulted(t *testing.T) {
	primary := newMemStore("primary")
	primary.docs[Leads] = []byte(`[]`)
	shim := newTestShim(t, primary, nil, nil)

	got := Load(context.Background(), shim, Leads, []record{{ID: "seed"}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// ==========================
// Subscribe
// ==========================

func TestSubscribe_DeliversDecodableSnapshots(t *testing.T) {
	bc := newChanBroadcaster()
	shim := newTestShim(t, newMemStore("primary"), nil, bc)

	got := make(chan []record, 4)
	cancel, err := Subscribe(context.Background(), shim, Buyers, func(items []record) { got <- items })
	require.NoError(t, err)
	defer cancel()

	bc.feed <- []byte(`garbage`)
	bc.feed <- []byte(`[{"id":"b9"}]`)

	select {
	case items := <-got:
		require.Len(t, items, 1)
		assert.Equal(t, "b9", items[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot not delivered")
	}
	assert.Empty(t, got)
}

func TestSubscribe_NoBroadcasterIsNoop(t *testing.T) {
	shim := newTestShim(t, newMemStore("primary"), nil, nil)

	cancel, err := Subscribe(context.Background(), shim, Buyers, func([]record) {})
	require.NoError(t, err)
	cancel()
}
