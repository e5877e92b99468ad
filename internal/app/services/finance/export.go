package finance

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/vendnet/vendops/internal/app/storage"
)

// ExportCSV streams the transactions in the period as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	transactions, err := s.store.ListTransactions(ctx, storage.TransactionFilter{From: from, To: to})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "occurred_at", "type", "category", "from_account", "to_account", "amount", "description", "reference_type", "reference_id"}
	if err := cw.Write(header); err != nil {
		return err
	}

	accountNames := make(map[string]string)
	accounts, err := s.store.ListFinanceAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		accountNames[a.ID] = a.Code
	}

	for _, t := range transactions {
		record := []string{
			t.ID,
			t.OccurredAt.UTC().Format(time.RFC3339),
			string(t.Type),
			string(t.Category),
			accountNames[t.FromAccountID],
			accountNames[t.ToAccountID],
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.Description,
			t.ReferenceType,
			t.ReferenceID,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
