package persistence

import (
	"context"
	"testing"
	"time"

	"wholesale-crm/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBehind_CoalescesSnapshots(t *testing.T) {
	primary := newMemStore("primary")
	wb := NewWriteBehind(newTestShim(t, primary, nil, nil), logger.NewTestLogger(t))

	wb.Enqueue(Buyers, []record{{ID: "v1"}})
	wb.Enqueue(Buyers, []record{{ID: "v2"}})
	wb.Enqueue(Leads, []record{})
	assert.Equal(t, 2, wb.Pending())

	require.NoError(t, wb.Flush(context.Background()))

	assert.Equal(t, 0, wb.Pending())
	assert.Equal(t, 2, primary.puts)
	assert.JSONEq(t, `[{"id":"v2","name":""}]`, string(primary.docs[Buyers]))
}

func TestWriteBehind_EnqueueNeverBlocks(t *testing.T) {
	primary := newMemStore("primary")
	wb := NewWriteBehind(newTestShim(t, primary, nil, nil), logger.NewTestLogger(t))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			wb.Enqueue(Collections[i%len(Collections)], []record{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked without a running flusher")
	}
	assert.Equal(t, len(Collections), wb.Pending())
}

func TestWriteBehind_FailedSnapshotIsRequeued(t *testing.T) {
	primary := newMemStore("primary")
	primary.putErr = assert.AnError
	wb := NewWriteBehind(newTestShim(t, primary, nil, nil), logger.NewTestLogger(t))

	wb.Enqueue(Contracts, []record{{ID: "c1"}})
	assert.Error(t, wb.Flush(context.Background()))
	assert.Equal(t, 1, wb.Pending())

	primary.putErr = nil
	require.NoError(t, wb.Flush(context.Background()))
	assert.Equal(t, 0, wb.Pending())
	assert.Contains(t, string(primary.docs[Contracts]), `"c1"`)
}

func TestWriteBehind_RunFlushesAndDrainsOnCancel(t *testing.T) {
	primary := newMemStore("primary")
	wb := NewWriteBehind(newTestShim(t, primary, nil, nil), logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		wb.Run(ctx, time.Second)
		close(stopped)
	}()

	wb.Enqueue(Properties, []record{{ID: "p1"}})
	require.Eventually(t, func() bool {
		primary.mu.Lock()
		defer primary.mu.Unlock()
		_, ok := primary.docs[Properties]
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	wb.Enqueue(WholesaleDeals, []record{{ID: "d1"}})
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	primary.mu.Lock()
	defer primary.mu.Unlock()
	assert.Contains(t, string(primary.docs[WholesaleDeals]), `"d1"`)
}
