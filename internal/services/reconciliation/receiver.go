package reconciliation

import (
	"strings"

	"exchange-reconciliation-backend/internal/models"
	"exchange-reconciliation-backend/internal/services/alias"
	"exchange-reconciliation-backend/internal/services/extractor"
)

// receiverMatches checks the receipt's receiver details against the matched
// company account. A bank-name hit alone is not enough: a transfer to a
// different holder at the same bank must not auto-match.
func receiverMatches(cand *extractor.Candidate, account *models.BankAccount) bool {
	if cand.ReceiverName != "" && account.AccountName != "" {
		if !alias.MatchesName(cand.ReceiverName, account.AccountName) {
			return false
		}
	}
	if tail := visibleDigitTail(cand.ReceiverRef); len(tail) >= 4 {
		if !strings.HasSuffix(digitsOf(account.AccountNumber), tail) {
			return false
		}
	}
	return true
}

// visibleDigitTail returns the digits printed after the last masked
// character of an account reference, e.g. "xxx-x-x1234-5" -> "12345".
func visibleDigitTail(ref string) string {
	if idx := strings.LastIndexAny(ref, "xX"); idx >= 0 {
		ref = ref[idx+1:]
	}
	return digitsOf(ref)
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
