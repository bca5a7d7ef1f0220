package lifestyle

import (
	"testing"

	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rich() *resource.Pool {
	return resource.New(resource.State{Currency: 1_000_000})
}

func TestDormHoldsNoPets(t *testing.T) {
	l := New()

	err := l.Adopt(PetFish, 1, rich())

	assert.True(t, reject.IsCapacity(err))
	assert.Equal(t, int64(0), l.MoodBonus())
}

func TestMoveInAndAdopt(t *testing.T) {
	l, pool := New(), rich()

	require.NoError(t, l.MoveIn(HousingLoft, 10, pool))
	require.NoError(t, l.Adopt(PetCat, 10, pool))
	require.NoError(t, l.Adopt(PetDog, 10, pool))

	assert.Equal(t, int64(1_000_000-15000-500-800), pool.Currency())
	assert.Equal(t, int64(3+2+3), l.MoodBonus())
	assert.True(t, reject.IsCapacity(l.Adopt(PetFish, 10, pool)))
}

func TestMoveInTooSmallForPets(t *testing.T) {
	l, pool := New(), rich()
	require.NoError(t, l.MoveIn(HousingLoft, 10, pool))
	require.NoError(t, l.Adopt(PetFish, 10, pool))
	require.NoError(t, l.Adopt(PetFish, 10, pool))

	err := l.MoveIn(HousingApartment, 10, pool)

	assert.True(t, reject.IsCapacity(err))
	assert.Equal(t, HousingLoft, l.Housing)

	require.NoError(t, l.Rehome(PetFish))
	assert.NoError(t, l.MoveIn(HousingApartment, 10, pool))
}

func TestRejections(t *testing.T) {
	l := New()
	poor := resource.New(resource.State{Currency: 10})

	assert.True(t, reject.HasCode(l.MoveIn(HousingPenthouse, 1, rich()), reject.CodeLevelTooLow))
	assert.True(t, reject.HasCode(l.MoveIn(HousingApartment, 5, poor), reject.CodeInsufficientCurrency))
	assert.True(t, reject.HasCode(l.MoveIn(PetCat, 5, rich()), reject.CodeNotFound))
	assert.True(t, reject.HasCode(l.MoveIn(HousingDorm, 5, rich()), reject.CodeAlreadyExists))
	assert.True(t, reject.HasCode(l.Rehome(PetDog), reject.CodeNotFound))
	assert.Equal(t, int64(10), poor.Currency())
}
