// Package extractor parses raw OCR text from a payment receipt into a
// structured candidate record. Extraction is deterministic: the same input
// always produces the same candidate.
package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Candidate is the transient record produced from one receipt image. It is
// owned by the coordinator for a single reconciliation attempt and never
// persisted directly.
type Candidate struct {
	AmountMinor  int64
	Currency     string
	BankFragment string
	SenderRef    string
	ReceiverRef  string
	ReceiverName string
	Reference    string
	Timestamp    *time.Time
	RawText      string
	Confidence   float64
}

// ExtractionError means the text could not produce a usable candidate; the
// user can resubmit a clearer image.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

var (
	amountRe = regexp.MustCompile(`(?i)(?:amount|total|transfer(?:red)?|จำนวนเงิน)[^\d]{0,10}([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{1,2})?)`)
	// Amount with an adjacent currency marker, used when no keyword is found.
	markedAmountRe = regexp.MustCompile(`(?i)(?:THB|฿|MMK|Ks)\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{1,2})?)|([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{1,2})?)\s*(?:THB|฿|MMK|Ks)`)

	currencyRe = regexp.MustCompile(`(?i)\b(THB|MMK)\b|฿|\bKs\b`)

	// Receiver lines are tried first; a bare "bank" keyword needs a colon
	// so "KASIKORNBANK" in a header line is not read as a label.
	toLineRe   = regexp.MustCompile(`(?im)^\s*(?:to|receiver|เข้าบัญชี)\s*:?\s+([A-Za-z][A-Za-z .&()-]{1,40})`)
	bankLineRe = regexp.MustCompile(`(?im)^\s*(?:receiver bank|to bank|bank)\s*:\s*([A-Za-z][A-Za-z .&()-]{1,40})`)

	// Account references: digit runs, possibly masked (xxx-x-x1234-5) and
	// dash separated. Tokens are filtered by digit count below.
	accountTokenRe = regexp.MustCompile(`[0-9xX][0-9xX-]{6,}[0-9xX]`)
	isoDateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	nameLineRe = regexp.MustCompile(`(?i)(?:name|account name|ชื่อบัญชี)[:\s]+([A-Za-z][A-Za-z .]{2,40})`)

	referenceRe = regexp.MustCompile(`(?i)ref(?:erence)?\.?\s*(?:no\.?|number|id)?\s*[:#]?\s*([A-Za-z0-9]{6,24})`)

	dateLayouts = []string{
		"02/01/2006 15:04",
		"02/01/06 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"02 Jan 2006 15:04",
		"02/01/2006",
		"2006-01-02",
	}
	dateRe = regexp.MustCompile(`\d{2}/\d{2}/\d{2,4}(?:\s+\d{2}:\d{2})?|\d{4}-\d{2}-\d{2}(?:\s+\d{2}:\d{2}(?::\d{2})?)?|\d{2} [A-Z][a-z]{2} \d{4}(?:\s+\d{2}:\d{2})?`)
)

// expectedFields is the denominator of the coarse confidence score:
// amount, currency, bank fragment, receiver ref, receiver name, timestamp.
const expectedFields = 6

// Extract applies the ordered pattern rules to raw OCR text. Amount and at
// least one bank-name fragment are required; everything else is optional.
func Extract(rawText string) (*Candidate, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, &ExtractionError{Reason: "empty text"}
	}

	cand := &Candidate{RawText: rawText}
	found := 0

	amount, ok := findAmount(text)
	if !ok {
		return nil, &ExtractionError{Reason: "no amount found"}
	}
	cand.AmountMinor = amount
	found++

	if m := currencyRe.FindString(text); m != "" {
		switch strings.ToUpper(m) {
		case "MMK", "KS":
			cand.Currency = "MMK"
		default:
			cand.Currency = "THB"
		}
		found++
	} else {
		cand.Currency = "THB"
	}

	if m := toLineRe.FindStringSubmatch(text); m != nil {
		cand.BankFragment = strings.TrimSpace(m[1])
		found++
	} else if m := bankLineRe.FindStringSubmatch(text); m != nil {
		cand.BankFragment = strings.TrimSpace(m[1])
		found++
	}
	if cand.BankFragment == "" {
		return nil, &ExtractionError{Reason: "no bank name found"}
	}

	refs := accountRefs(text, 2)
	if len(refs) > 0 {
		cand.SenderRef = strings.TrimSpace(refs[0])
	}
	if len(refs) > 1 {
		cand.ReceiverRef = strings.TrimSpace(refs[1])
		found++
	}

	if m := nameLineRe.FindStringSubmatch(text); m != nil {
		cand.ReceiverName = strings.TrimSpace(m[1])
		found++
	}

	if m := referenceRe.FindStringSubmatch(text); m != nil {
		cand.Reference = m[1]
	}

	if m := dateRe.FindString(text); m != "" {
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, m); err == nil {
				cand.Timestamp = &ts
				found++
				break
			}
		}
	}

	cand.Confidence = float64(found) / float64(expectedFields)
	return cand, nil
}

// accountRefs returns up to max account-number tokens. A token counts only
// when it carries at least four digits, which drops dates and short codes.
func accountRefs(text string, max int) []string {
	var refs []string
	for _, tok := range accountTokenRe.FindAllString(text, -1) {
		if isoDateRe.MatchString(tok) {
			continue
		}
		digits := 0
		for _, r := range tok {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 4 {
			refs = append(refs, tok)
			if len(refs) == max {
				break
			}
		}
	}
	return refs
}

// findAmount locates the transfer amount, preferring keyword-anchored
// tokens, then currency-marked tokens.
func findAmount(text string) (int64, bool) {
	if m := amountRe.FindStringSubmatch(text); m != nil {
		if v, err := ParseAmountMinor(m[1]); err == nil {
			return v, true
		}
	}
	if m := markedAmountRe.FindStringSubmatch(text); m != nil {
		tok := m[1]
		if tok == "" {
			tok = m[2]
		}
		if v, err := ParseAmountMinor(tok); err == nil {
			return v, true
		}
	}
	return 0, false
}

// ParseAmountMinor parses "1,234.56" style tokens into minor units (x100).
func ParseAmountMinor(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	minor := units * 100
	if hasFrac {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		minor += cents
	}
	if minor <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return minor, nil
}

// FormatMinor renders minor units for logs and API payloads.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
