// Package alias resolves free-text bank-name fragments from OCR output to
// canonical bank accounts. Lookups run against an immutable snapshot of the
// configured accounts and aliases, so a resolve is a pure function of
// (fragment, snapshot).
package alias

import (
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/google/uuid"
)

// AcceptThreshold is the minimum similarity for a fuzzy match. 0.85 keeps
// single-character OCR corruptions ("MWE" read for "NWE") while rejecting
// fragments that merely share a few letters with a configured alias.
const AcceptThreshold = 0.85

type MatchKind int

const (
	NoMatch MatchKind = iota
	ExactMatch
	FuzzyMatch
)

func (k MatchKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case FuzzyMatch:
		return "fuzzy"
	}
	return "no_match"
}

// Account is the resolver's view of a configured bank account.
type Account struct {
	ID       uuid.UUID
	BankName string
	Currency string
	Position int
}

// MatchResult is the outcome of a resolve. Account is nil for NoMatch.
type MatchResult struct {
	Kind    MatchKind
	Account *Account
	Score   float64
}

type aliasRow struct {
	normalized string
	accountIdx int
}

// Snapshot is an immutable view of the alias table. Build a new one and
// swap it into the Resolver whenever account/alias configuration changes.
type Snapshot struct {
	accounts   []Account
	exact      map[string]int
	rows       []aliasRow
	aliasCount []int
}

// AccountConfig describes one account when building a snapshot. Aliases do
// not need to include the canonical bank name; it is always added.
type AccountConfig struct {
	Account Account
	Aliases []string
}

// NewSnapshot builds a snapshot from accounts in configuration order.
func NewSnapshot(configs []AccountConfig) *Snapshot {
	s := &Snapshot{
		exact:      make(map[string]int),
		aliasCount: make([]int, len(configs)),
	}
	for i, cfg := range configs {
		s.accounts = append(s.accounts, cfg.Account)
		names := append([]string{cfg.Account.BankName}, cfg.Aliases...)
		for _, name := range names {
			n := Normalize(name)
			if n == "" {
				continue
			}
			if _, ok := s.exact[n]; !ok {
				s.exact[n] = i
			}
			s.rows = append(s.rows, aliasRow{normalized: n, accountIdx: i})
			s.aliasCount[i]++
		}
	}
	return s
}

// Resolve maps a bank-name fragment to a configured account. Exact table
// hits win; otherwise the best edit-distance similarity above
// AcceptThreshold is accepted. Truncated fragments are also scored against
// the alias prefix of equal length, so "Siam Commerc1al" still reaches
// "Siam Commercial Bank". Ties prefer the account with more alias entries,
// then the earliest-configured account.
func (s *Snapshot) Resolve(fragment string) MatchResult {
	n := Normalize(fragment)
	if n == "" {
		return MatchResult{Kind: NoMatch}
	}

	if idx, ok := s.exact[n]; ok {
		return MatchResult{Kind: ExactMatch, Account: &s.accounts[idx], Score: 1}
	}

	bestIdx := -1
	bestScore := 0.0
	for _, row := range s.rows {
		score := fuzzyScore(n, row.normalized)
		if score < AcceptThreshold {
			continue
		}
		if bestIdx == -1 || score > bestScore {
			bestIdx, bestScore = row.accountIdx, score
			continue
		}
		if score == bestScore && row.accountIdx != bestIdx {
			if s.prefer(row.accountIdx, bestIdx) {
				bestIdx = row.accountIdx
			}
		}
	}
	if bestIdx == -1 {
		return MatchResult{Kind: NoMatch}
	}
	return MatchResult{Kind: FuzzyMatch, Account: &s.accounts[bestIdx], Score: bestScore}
}

// prefer reports whether account a wins a score tie against account b.
func (s *Snapshot) prefer(a, b int) bool {
	if s.aliasCount[a] != s.aliasCount[b] {
		return s.aliasCount[a] > s.aliasCount[b]
	}
	return s.accounts[a].Position < s.accounts[b].Position
}

// Resolver holds the current snapshot; Swap is atomic so concurrent
// resolves always see one consistent table.
type Resolver struct {
	snap atomic.Pointer[Snapshot]
}

func NewResolver(snap *Snapshot) *Resolver {
	r := &Resolver{}
	r.snap.Store(snap)
	return r
}

func (r *Resolver) Swap(snap *Snapshot) {
	r.snap.Store(snap)
}

func (r *Resolver) Resolve(fragment string) MatchResult {
	return r.snap.Load().Resolve(fragment)
}

var honorifics = []string{"miss", "mrs", "mr", "ms", "dr", "prof", "sir", "madam"}

// Normalize case-folds, strips honorific prefixes and removes everything
// that is not a letter or digit.
func Normalize(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, p := range honorifics {
		if strings.HasPrefix(lower, p+" ") || strings.HasPrefix(lower, p+".") {
			lower = lower[len(p)+1:]
			break
		}
	}
	var b strings.Builder
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// minPrefixRunes is the shortest fragment allowed to score against an
// alias prefix; shorter fragments only match whole aliases.
const minPrefixRunes = 4

// fuzzyScore compares a fragment against one normalized alias. When the
// lengths differ, the longer string is also truncated to the shorter one's
// length, so a receipt that cuts off "Bank" or appends branch text still
// scores against the name it shows.
func fuzzyScore(fragment, aliasName string) float64 {
	best := similarity(fragment, aliasName)
	rf, ra := []rune(fragment), []rune(aliasName)
	short := len(rf)
	if len(ra) < short {
		short = len(ra)
	}
	if short >= minPrefixRunes && len(rf) != len(ra) {
		if s := similarity(string(rf[:short]), string(ra[:short])); s > best {
			best = s
		}
	}
	return best
}

// MatchesName reports whether two account-holder names agree after
// normalization, tolerating a small OCR corruption.
func MatchesName(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return similarity(na, nb) >= AcceptThreshold
}

// similarity is 1 - levenshtein/maxLen over already-normalized strings.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			dp[i][j] = min3(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
