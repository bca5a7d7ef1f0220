package skill

import (
	"testing"
	"time"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]Definition{
		{ID: "base", Name: "Base", Price: 100, FileSizeGB: 1, UnlockLevel: 1, Max100: 10, Max200: 30},
		{ID: "adv", Name: "Advanced", Price: 300, FileSizeGB: 4, UnlockLevel: 3, PrerequisiteID: "base", Max100: 5, Max200: 10},
	})
	require.NoError(t, err)
	return c
}

func newPool() *resource.Pool {
	return resource.New(resource.State{
		MemoryTotal: 8, CPUTotal: 4, BandwidthTotal: 100, ComputingTotal: 40, StorageTotal: 10, Currency: 1000,
	})
}

// installed purchases id and downloads it to completion.
func installed(t *testing.T, s *Set, pool *resource.Pool, id string, level int) {
	t.Helper()
	_, err := s.Purchase(id, level, pool, now)
	require.NoError(t, err)
	done, err := s.AdvanceDownload(id, 1e6, 100)
	require.NoError(t, err)
	require.True(t, done)
}

func TestPurchaseStartsDownload(t *testing.T) {
	s := NewSet(testCatalog(t), nil)
	pool := newPool()

	assert.Equal(t, StatusAvailable, s.StatusOf("base", 1))
	inst, err := s.Purchase("base", 1, pool, now)

	require.NoError(t, err)
	assert.Equal(t, StatusDownloading, inst.Status)
	assert.Equal(t, 0.0, inst.DownloadProgress)
	assert.Equal(t, int64(900), pool.Currency())
	assert.Equal(t, 1.0, pool.Usage(resource.Storage))
}

func TestPurchaseRejections(t *testing.T) {
	cat := testCatalog(t)

	t.Run("level too low", func(t *testing.T) {
		s, pool := NewSet(cat, nil), newPool()
		installed(t, s, pool, "base", 1)
		_, err := s.Purchase("adv", 2, pool, now)
		assert.True(t, reject.HasCode(err, reject.CodeLevelTooLow))
	})
	t.Run("missing prerequisite", func(t *testing.T) {
		s, pool := NewSet(cat, nil), newPool()
		assert.Equal(t, StatusLocked, s.StatusOf("adv", 5))
		_, err := s.Purchase("adv", 5, pool, now)
		assert.True(t, reject.HasCode(err, reject.CodeMissingPrerequisite))
	})
	t.Run("insufficient currency", func(t *testing.T) {
		s := NewSet(cat, nil)
		pool := resource.New(resource.State{StorageTotal: 10, Currency: 50})
		_, err := s.Purchase("base", 1, pool, now)
		assert.True(t, reject.HasCode(err, reject.CodeInsufficientCurrency))
		assert.Equal(t, 0.0, pool.Usage(resource.Storage))
	})
	t.Run("insufficient storage", func(t *testing.T) {
		s := NewSet(cat, nil)
		pool := resource.New(resource.State{StorageTotal: 0.5, Currency: 1000})
		_, err := s.Purchase("base", 1, pool, now)
		assert.True(t, reject.HasCode(err, reject.CodeInsufficientStorage))
		assert.Equal(t, int64(1000), pool.Currency())
	})
	t.Run("already owned", func(t *testing.T) {
		s, pool := NewSet(cat, nil), newPool()
		_, err := s.Purchase("base", 1, pool, now)
		require.NoError(t, err)
		_, err = s.Purchase("base", 1, pool, now)
		assert.True(t, reject.HasCode(err, reject.CodeAlreadyExists))
	})
}

func TestAdvanceDownloadIsMonotonic(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	_, err := s.Purchase("base", 1, pool, now)
	require.NoError(t, err)

	// 1 GB at 100 Mbps takes 81.92 s.
	done, err := s.AdvanceDownload("base", 40.96, 100)
	require.NoError(t, err)
	assert.False(t, done)
	assert.InDelta(t, 50.0, s.Get("base").DownloadProgress, 1e-9)

	done, err = s.AdvanceDownload("base", -10, 100)
	require.NoError(t, err)
	assert.False(t, done)
	assert.InDelta(t, 50.0, s.Get("base").DownloadProgress, 1e-9)

	done, err = s.AdvanceDownload("base", 100, 100)
	require.NoError(t, err)
	assert.True(t, done)
	inst := s.Get("base")
	assert.Equal(t, StatusInstalled, inst.Status)
	assert.Equal(t, 100.0, inst.DownloadProgress)
	assert.Equal(t, 20.0, inst.MasteryPercent)

	_, err = s.AdvanceDownload("base", 1, 100)
	assert.True(t, reject.HasCode(err, reject.CodeInvalidState))
}

func TestAdvanceDownloadWithoutBandwidth(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	_, err := s.Purchase("base", 1, pool, now)
	require.NoError(t, err)

	done, err := s.AdvanceDownload("base", 1000, 0)

	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 0.0, s.Get("base").DownloadProgress)
}

func TestCancelDownloadRefunds(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	_, err := s.Purchase("base", 1, pool, now)
	require.NoError(t, err)

	require.NoError(t, s.CancelDownload("base", pool))

	assert.Equal(t, int64(1000), pool.Currency())
	assert.Equal(t, 0.0, pool.Usage(resource.Storage))
	assert.Nil(t, s.Get("base"))
	assert.Equal(t, StatusAvailable, s.StatusOf("base", 1))
}

func TestAllocateComputingMastery(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	installed(t, s, pool, "base", 1)

	require.NoError(t, s.AllocateComputing("base", 10, pool))
	assert.Equal(t, 100.0, s.Mastery("base"))

	require.NoError(t, s.AllocateComputing("base", 20, pool))
	assert.Equal(t, 150.0, s.Mastery("base"))
	assert.Equal(t, 20.0, pool.Usage(resource.Computing))

	require.NoError(t, s.AllocateComputing("base", 5, pool))
	assert.Equal(t, 60.0, s.Mastery("base"))
	assert.Equal(t, 5.0, pool.Usage(resource.Computing))
}

func TestAllocateComputingOverCapacityIsAtomic(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	installed(t, s, pool, "base", 1)
	require.NoError(t, s.AllocateComputing("base", 10, pool))

	err := s.AllocateComputing("base", 41, pool)

	assert.True(t, reject.IsCapacity(err))
	assert.Equal(t, 10.0, s.Get("base").AllocatedComputing)
	assert.Equal(t, 100.0, s.Mastery("base"))
	assert.Equal(t, 10.0, pool.Usage(resource.Computing))
}

func TestAllocateComputingCompetesWithPool(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	installed(t, s, pool, "base", 1)
	require.True(t, pool.TryAllocate(0, 0, 0, 35))

	err := s.AllocateComputing("base", 10, pool)

	assert.True(t, reject.HasCode(err, reject.CodeInsufficientResource))
	assert.Equal(t, 0.0, s.Get("base").AllocatedComputing)
}

func TestAllocateRequiresInstalled(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	_, err := s.Purchase("base", 1, pool, now)
	require.NoError(t, err)

	assert.True(t, reject.IsState(s.AllocateComputing("base", 1, pool)))
	assert.True(t, reject.IsState(s.SetInUse("base", true)))
	assert.True(t, reject.IsState(s.AllocateComputing("adv", 1, pool)))
}

func TestMeanMastery(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	installed(t, s, pool, "base", 1)
	require.NoError(t, s.AllocateComputing("base", 20, pool))

	assert.Equal(t, 100.0, s.MeanMastery(nil))
	assert.Equal(t, 150.0, s.MeanMastery([]string{"base"}))
	assert.Equal(t, 75.0, s.MeanMastery([]string{"base", "adv"}))
}

func TestRestoreFromInstances(t *testing.T) {
	s, pool := NewSet(testCatalog(t), nil), newPool()
	installed(t, s, pool, "base", 1)
	require.NoError(t, s.SetInUse("base", true))

	restored := NewSet(s.Catalog(), append(s.Instances(), Instance{SkillID: "gone"}))

	assert.True(t, restored.IsInstalled("base"))
	assert.True(t, restored.Get("base").InUse)
	assert.Nil(t, restored.Get("gone"))
	assert.Equal(t, 1.0, restored.ReservedStorage())
}

func TestCatalogValidation(t *testing.T) {
	_, err := NewCatalog([]Definition{{ID: "x", Name: "X", FileSizeGB: 1, UnlockLevel: 1, Max100: 5, Max200: 5}})
	assert.Error(t, err)

	_, err = NewCatalog([]Definition{{ID: "x", Name: "X", FileSizeGB: 1, UnlockLevel: 1, Max100: 5, Max200: 6, PrerequisiteID: "y"}})
	assert.Error(t, err)

	all := DefaultCatalog().All()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].UnlockLevel)
}
