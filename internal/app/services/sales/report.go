package sales

import (
	"context"
	"time"

	"github.com/vendnet/vendops/internal/app/domain/sale"
	"github.com/vendnet/vendops/internal/app/storage"
)

// Report aggregates sales over the period by payment method and
// product. Product buckets are keyed by product name when the catalog
// still knows the product, by id otherwise.
func (s *Service) Report(ctx context.Context, from, to time.Time) (sale.Report, error) {
	list, err := s.store.ListSales(ctx, storage.SaleFilter{From: from, To: to})
	if err != nil {
		return sale.Report{}, err
	}

	report := sale.Report{
		From:      from,
		To:        to,
		ByMethod:  make(map[string]sale.ReportLine),
		ByProduct: make(map[string]sale.ReportLine),
	}
	names := make(map[string]string)
	for _, sl := range list {
		report.SalesCount++
		report.TotalRevenue += sl.TotalAmount

		method := report.ByMethod[string(sl.PaymentMethod)]
		method.Count++
		method.Revenue += sl.TotalAmount
		report.ByMethod[string(sl.PaymentMethod)] = method

		key, ok := names[sl.ProductID]
		if !ok {
			key = sl.ProductID
			if p, err := s.catalog.GetProduct(ctx, sl.ProductID); err == nil {
				key = p.Name
			}
			names[sl.ProductID] = key
		}
		product := report.ByProduct[key]
		product.Count++
		product.Revenue += sl.TotalAmount
		report.ByProduct[key] = product
	}
	if report.SalesCount > 0 {
		report.AverageCheck = report.TotalRevenue / float64(report.SalesCount)
	}
	return report, nil
}
