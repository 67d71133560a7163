package alias

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thaiSnapshot() *Snapshot {
	return NewSnapshot([]AccountConfig{
		{
			Account: Account{ID: uuid.New(), BankName: "Siam Commercial Bank", Currency: "THB", Position: 1},
			Aliases: []string{"SCB", "ไทยพาณิชย์"},
		},
		{
			Account: Account{ID: uuid.New(), BankName: "Kasikorn Bank", Currency: "THB", Position: 2},
			Aliases: []string{"KBank", "Kasikorn"},
		},
		{
			Account: Account{ID: uuid.New(), BankName: "Bangkok Bank", Currency: "THB", Position: 3},
			Aliases: []string{"BBL"},
		},
	})
}

func TestResolveExact(t *testing.T) {
	snap := thaiSnapshot()

	tests := []struct {
		name     string
		fragment string
		bank     string
	}{
		{"alias uppercase", "SCB", "Siam Commercial Bank"},
		{"alias mixed case with spaces", "  kBaNk ", "Kasikorn Bank"},
		{"canonical name", "Bangkok Bank", "Bangkok Bank"},
		{"honorific stripped", "Mr. Kasikorn", "Kasikorn Bank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := snap.Resolve(tt.fragment)
			require.Equal(t, ExactMatch, res.Kind)
			require.NotNil(t, res.Account)
			assert.Equal(t, tt.bank, res.Account.BankName)
			assert.Equal(t, 1.0, res.Score)
		})
	}
}

func TestResolveFuzzy(t *testing.T) {
	snap := thaiSnapshot()

	res := snap.Resolve("Siam Commerc1al Bank")
	require.Equal(t, FuzzyMatch, res.Kind)
	require.NotNil(t, res.Account)
	assert.Equal(t, "Siam Commercial Bank", res.Account.BankName)
	assert.GreaterOrEqual(t, res.Score, AcceptThreshold)
	assert.Less(t, res.Score, 1.0)
}

func TestResolveFuzzyTruncatedFragment(t *testing.T) {
	// A receipt often cuts the trailing "Bank" off the name; a one-character
	// corruption of the remaining prefix must still clear the threshold.
	for _, canonical := range []string{"SiamCommercialBank", "Siam Commercial Bank"} {
		snap := NewSnapshot([]AccountConfig{
			{
				Account: Account{ID: uuid.New(), BankName: canonical, Currency: "THB", Position: 1},
				Aliases: []string{"SCB"},
			},
		})

		res := snap.Resolve("Siam Commerc1al")
		require.Equal(t, FuzzyMatch, res.Kind, "canonical %q", canonical)
		assert.Equal(t, canonical, res.Account.BankName)
		assert.GreaterOrEqual(t, res.Score, AcceptThreshold)
	}
}

func TestResolveNoMatch(t *testing.T) {
	snap := thaiSnapshot()

	for _, fragment := range []string{"Citibank", "HSBC", "", "   ", "!!"} {
		res := snap.Resolve(fragment)
		assert.Equal(t, NoMatch, res.Kind, "fragment %q", fragment)
		assert.Nil(t, res.Account)
	}
}

func TestResolveDeterministic(t *testing.T) {
	snap := thaiSnapshot()

	first := snap.Resolve("Kas1korn")
	require.Equal(t, FuzzyMatch, first.Kind)
	for i := 0; i < 20; i++ {
		res := snap.Resolve("Kas1korn")
		assert.Equal(t, first.Kind, res.Kind)
		assert.Equal(t, first.Account.ID, res.Account.ID)
		assert.Equal(t, first.Score, res.Score)
	}
}

func TestResolveTieBreakAliasCount(t *testing.T) {
	// Both aliases are the same edit distance from the fragment; the account
	// with more configured aliases wins.
	snap := NewSnapshot([]AccountConfig{
		{
			Account: Account{ID: uuid.New(), BankName: "AlphaBankX", Position: 1},
			Aliases: []string{"ABX"},
		},
		{
			Account: Account{ID: uuid.New(), BankName: "AlphaBankZ", Position: 2},
		},
	})

	res := snap.Resolve("AlphaBankY")
	require.Equal(t, FuzzyMatch, res.Kind)
	assert.Equal(t, "AlphaBankX", res.Account.BankName)
}

func TestResolveTieBreakPosition(t *testing.T) {
	// Equal alias counts; the account listed earlier wins regardless of
	// configuration order.
	snap := NewSnapshot([]AccountConfig{
		{Account: Account{ID: uuid.New(), BankName: "AlphaBankX", Position: 5}},
		{Account: Account{ID: uuid.New(), BankName: "AlphaBankZ", Position: 1}},
	})

	res := snap.Resolve("AlphaBankY")
	require.Equal(t, FuzzyMatch, res.Kind)
	assert.Equal(t, "AlphaBankZ", res.Account.BankName)
}

func TestResolverSwap(t *testing.T) {
	r := NewResolver(NewSnapshot(nil))
	assert.Equal(t, NoMatch, r.Resolve("SCB").Kind)

	r.Swap(thaiSnapshot())
	assert.Equal(t, ExactMatch, r.Resolve("SCB").Kind)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Siam Commercial Bank", "siamcommercialbank"},
		{"Mr. Somchai", "somchai"},
		{"MISS MIN MYAT NWE", "minmyatnwe"},
		{"K-Bank (Mobile)", "kbankmobile"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestMatchesName(t *testing.T) {
	tests := []struct {
		a    string
		b    string
		want bool
	}{
		{"MIN MYAT NWE", "Min Myat Nwe", true},
		{"MISS MIN MYAT NWE", "MIN MYAT NWE", true},
		{"MIN MYAT MWE", "MIN MYAT NWE", true},
		{"AUNG AUNG", "MIN MYAT NWE", false},
		{"", "MIN MYAT NWE", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesName(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("kbank", "kbank"))
	assert.InDelta(t, 0.8, similarity("kbank", "kbanc"), 1e-9)
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
}
