package persistence

import (
	"testing"
	"time"

	"wholesale-crm/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotFunc func()

func (f snapshotFunc) SaveAll() { f() }

func TestAutosave_TickSnapshotsAndFlushes(t *testing.T) {
	primary := newMemStore("primary")
	log := logger.NewTestLogger(t)
	wb := NewWriteBehind(newTestShim(t, primary, nil, nil), log)

	calls := 0
	source := snapshotFunc(func() {
		calls++
		wb.Enqueue(Buyers, []record{{ID: "b1"}})
	})

	a, err := NewAutosave("@every 1h", source, wb, time.Second, log)
	require.NoError(t, err)

	a.Tick()
	assert.Equal(t, 1, calls)
	assert.Zero(t, wb.Pending())
	assert.JSONEq(t, `[{"id":"b1","name":""}]`, string(primary.docs[Buyers]))
}

func TestAutosave_RetriesRequeuedSnapshots(t *testing.T) {
	primary := newMemStore("primary")
	primary.putErr = assert.AnError
	log := logger.NewTestLogger(t)
	wb := NewWriteBehind(newTestShim(t, primary, nil, nil), log)

	a, err := NewAutosave("@every 1h", snapshotFunc(func() {}), wb, time.Second, log)
	require.NoError(t, err)

	wb.Enqueue(Leads, []record{{ID: "l1"}})
	a.Tick()
	assert.Equal(t, 1, wb.Pending())

	primary.putErr = nil
	a.Tick()
	assert.Zero(t, wb.Pending())
	assert.Contains(t, string(primary.docs[Leads]), "l1")
}

func TestAutosave_RejectsBadSchedule(t *testing.T) {
	_, err := NewAutosave("every now and then", snapshotFunc(func() {}), nil, time.Second, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestAutosave_StartStop(t *testing.T) {
	a, err := NewAutosave("@every 1h", snapshotFunc(func() {}), nil, time.Second, logger.NewNoOpLogger())
	require.NoError(t, err)
	a.Start()
	a.Stop()
}
