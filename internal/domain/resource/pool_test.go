package resource

import (
	"testing"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool() *Pool {
	return New(State{
		MemoryTotal:    16,
		CPUTotal:       8,
		BandwidthTotal: 200,
		ComputingTotal: 20,
		StorageTotal:   100,
		Currency:       500,
	})
}

func TestTryAllocateThenReleaseRestoresUsage(t *testing.T) {
	requests := []Amounts{
		{Memory: 1, CPU: 1, Bandwidth: 10, Computing: 2},
		{Memory: 0.1, CPU: 0.2, Bandwidth: 0.3, Computing: 0.7},
		{Memory: 15.6, CPU: 7.8, Bandwidth: 199.2, Computing: 19.7},
		{},
	}

	for _, req := range requests {
		pool := newTestPool()
		require.True(t, pool.TryAllocate(0.3, 0.1, 0.7, 0.2))
		before := pool.State()

		require.True(t, pool.Allocate(req), "allocation of %+v", req)
		pool.ReleaseAmounts(req)

		assert.Equal(t, before, pool.State(), "round trip of %+v", req)
	}
}

func TestTryAllocateIsAllOrNothing(t *testing.T) {
	pool := newTestPool()
	before := pool.State()

	ok := pool.TryAllocate(4, 4, 50, 21)

	assert.False(t, ok)
	assert.Equal(t, before, pool.State())
}

func TestTryAllocateRejectsNegativeAmounts(t *testing.T) {
	pool := newTestPool()

	assert.False(t, pool.TryAllocate(-1, 0, 0, 0))
	assert.Equal(t, 0.0, pool.Usage(Memory))
}

func TestTryAllocateExactCapacity(t *testing.T) {
	pool := newTestPool()

	require.True(t, pool.TryAllocate(16, 8, 200, 20))
	assert.Equal(t, 0.0, pool.Available(Computing))
	assert.False(t, pool.TryAllocate(0, 0, 0, 0.001))
}

func TestReleaseClampsAtZero(t *testing.T) {
	pool := newTestPool()
	require.True(t, pool.TryAllocate(2, 1, 10, 5))

	pool.Release(10, 10, 1000, 100)

	for _, k := range Allocatable {
		assert.Equal(t, 0.0, pool.Usage(k), k.String())
	}
}

func TestUpgradeCapacity(t *testing.T) {
	pool := newTestPool()

	require.NoError(t, pool.UpgradeCapacity(Computing, 30))
	assert.Equal(t, 50.0, pool.Capacity(Computing))

	err := pool.UpgradeCapacity(Memory, -1)
	assert.True(t, reject.HasCode(err, reject.CodeInvalidAmount))
	assert.Equal(t, 16.0, pool.Capacity(Memory))
}

func TestCurrency(t *testing.T) {
	pool := newTestPool()

	require.NoError(t, pool.EarnCurrency(100))
	assert.Equal(t, int64(600), pool.Currency())

	assert.False(t, pool.TrySpendCurrency(601))
	assert.Equal(t, int64(600), pool.Currency())

	assert.True(t, pool.TrySpendCurrency(600))
	assert.Equal(t, int64(0), pool.Currency())

	assert.Error(t, pool.EarnCurrency(-5))
}

func TestChangeMoodIsUnbounded(t *testing.T) {
	pool := newTestPool()

	pool.ChangeMood(-80)
	assert.Equal(t, int64(-80), pool.Mood())

	pool.ChangeMood(1000)
	assert.Equal(t, int64(920), pool.Mood())
}

func TestGenerateData(t *testing.T) {
	pool := newTestPool()

	assert.True(t, pool.GenerateData(60))
	assert.Equal(t, 60.0, pool.Usage(Storage))

	assert.False(t, pool.GenerateData(41))
	assert.Equal(t, 60.0, pool.Usage(Storage))

	assert.True(t, pool.GenerateData(40))
	assert.Equal(t, 0.0, pool.Available(Storage))
}

func TestStorageStatusThresholds(t *testing.T) {
	pool := newTestPool()
	assert.Equal(t, StorageNormal, pool.StorageStatus())

	require.True(t, pool.GenerateData(80))
	assert.Equal(t, StorageNearFull, pool.StorageStatus())

	require.True(t, pool.GenerateData(15))
	assert.Equal(t, StorageFull, pool.StorageStatus())

	pool.ReleaseStorage(50)
	assert.Equal(t, StorageNormal, pool.StorageStatus())
}

func TestAverageIdlePercent(t *testing.T) {
	pool := newTestPool()
	assert.Equal(t, 100.0, pool.AverageIdlePercent())

	// memory 50%, cpu 25%, bandwidth 0%, computing 100% used
	require.True(t, pool.TryAllocate(8, 2, 0, 20))

	assert.InDelta(t, (50.0+75.0+100.0+0.0)/4, pool.AverageIdlePercent(), 1e-9)
	assert.InDelta(t, 50.0, pool.UsagePercent(Memory), 1e-9)
}

func TestZeroCapacityReportsIdle(t *testing.T) {
	pool := New(State{})

	assert.Equal(t, 0.0, pool.UsagePercent(CPU))
	assert.Equal(t, StorageFull, pool.StorageStatus())
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("bandwidth")
	require.True(t, ok)
	assert.Equal(t, Bandwidth, k)

	_, ok = ParseKind("gpu")
	assert.False(t, ok)
}
