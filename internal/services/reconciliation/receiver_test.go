package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"exchange-reconciliation-backend/internal/models"
	"exchange-reconciliation-backend/internal/services/extractor"
)

func TestVisibleDigitTail(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"xxx-x-x1234-5", "12345"},
		{"987-6-54321-0", "9876543210"},
		{"XXXX9012", "9012"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, visibleDigitTail(tt.ref), "ref %q", tt.ref)
	}
}

func TestReceiverMatches(t *testing.T) {
	account := &models.BankAccount{
		AccountNumber: "123-4-56789-0",
		AccountName:   "MIN MYAT NWE",
	}

	tests := []struct {
		name string
		cand extractor.Candidate
		want bool
	}{
		{"name and tail agree", extractor.Candidate{ReceiverName: "MIN MYAT NWE", ReceiverRef: "xxx-x-6789-0"}, true},
		{"ocr-corrupted name", extractor.Candidate{ReceiverName: "MIN MYAT MWE"}, true},
		{"no receiver details", extractor.Candidate{}, true},
		{"different holder", extractor.Candidate{ReceiverName: "AUNG AUNG"}, false},
		{"wrong account tail", extractor.Candidate{ReceiverName: "MIN MYAT NWE", ReceiverRef: "xxx-x-x9999-9"}, false},
		{"short tail ignored", extractor.Candidate{ReceiverRef: "xxx-x-xxx9-0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, receiverMatches(&tt.cand, account))
		})
	}
}
