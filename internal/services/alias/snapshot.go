package alias

import (
	"exchange-reconciliation-backend/internal/models"
)

// BuildSnapshot assembles a snapshot from persisted configuration rows.
// Accounts must already be in configuration order.
func BuildSnapshot(accounts []models.BankAccount, aliases []models.AliasEntry) *Snapshot {
	byAccount := make(map[string][]string)
	for _, a := range aliases {
		key := a.BankAccountID.String()
		byAccount[key] = append(byAccount[key], a.Alias)
	}

	configs := make([]AccountConfig, 0, len(accounts))
	for _, acc := range accounts {
		if !acc.IsActive {
			continue
		}
		configs = append(configs, AccountConfig{
			Account: Account{
				ID:       acc.ID,
				BankName: acc.BankName,
				Currency: acc.Currency,
				Position: acc.Position,
			},
			Aliases: byAccount[acc.ID.String()],
		})
	}
	return NewSnapshot(configs)
}
