package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

func rankedOf(symbols ...string) []contracts.RankedSymbol {
	out := make([]contracts.RankedSymbol, len(symbols))
	for i, s := range symbols {
		out[i] = contracts.RankedSymbol{Symbol: s, Rank: i + 1}
	}
	return out
}

func TestBuild_SkipsBlacklistedAndUnpriced(t *testing.T) {
	c := NewConstructor(2, Constraints{BlackList: []string{"BBB"}}, logger.Nop())
	u := &contracts.Universe{Entries: []contracts.UniverseEntry{
		{Symbol: "AAA", Price: 10},
		{Symbol: "BBB", Price: 10},
		{Symbol: "CCC", Price: 0},
		{Symbol: "DDD", Price: 20},
		{Symbol: "EEE", Price: 5},
	}}

	targets, err := c.Build(rankedOf("AAA", "BBB", "CCC", "XXX", "DDD", "EEE"), u, decimal.NewFromInt(1000))
	require.NoError(t, err)

	require.Len(t, targets, 2)
	assert.Equal(t, "AAA", targets[0].Symbol)
	assert.Equal(t, "DDD", targets[1].Symbol)
	assert.True(t, targets[0].Shares.Equal(decimal.NewFromInt(50)))
	assert.True(t, targets[1].Shares.Equal(decimal.NewFromInt(25)))
	assert.True(t, targets[1].Holding().HoldingValue.Equal(decimal.NewFromInt(500)))
}

func TestBuild_Errors(t *testing.T) {
	c := NewConstructor(10, DefaultConstraints(), logger.Nop())
	u := &contracts.Universe{Entries: []contracts.UniverseEntry{{Symbol: "AAA", Price: 10}}}

	_, err := c.Build(rankedOf("AAA"), u, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	_, err = c.Build(rankedOf("ZZZ"), u, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}
