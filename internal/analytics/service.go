// Package analytics derives period summaries from approved ledger entries.
package analytics

import (
	"context"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/shopspring/decimal"
)

// Service computes read-only reports.
type Service struct {
	ledger         repository.LedgerRepository
	reimbursements repository.ReimbursementRepository
}

// NewService creates an analytics service.
func NewService(ledger repository.LedgerRepository, reimbursements repository.ReimbursementRepository) *Service {
	return &Service{ledger: ledger, reimbursements: reimbursements}
}

// Summary totals approved entries dated start..end inclusive. Offerings are
// reported but excluded from net profit. The reimbursement count includes
// every status.
func (s *Service) Summary(ctx context.Context, r domain.DateRange) (*domain.AnalyticsSummary, error) {
	entries, err := s.ledger.ListApprovedLedgerEntries(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}

	var totals domain.CategoryTotals
	trend := make([]domain.TrendPoint, 0)
	for _, e := range entries {
		totals.Add(e.Category, e.Amount)

		if len(trend) == 0 || trend[len(trend)-1].Date != e.EntryDate {
			trend = append(trend, domain.TrendPoint{Date: e.EntryDate, Sales: decimal.Zero, Expenses: decimal.Zero})
		}
		point := &trend[len(trend)-1]
		switch e.Category {
		case domain.CategorySales:
			point.Sales = point.Sales.Add(e.Amount)
		case domain.CategoryExpense:
			point.Expenses = point.Expenses.Add(e.Amount)
		}
	}
	totals.Settle()

	count, err := s.reimbursements.CountReimbursements(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("Summary: counting reimbursements: %w", err)
	}

	return &domain.AnalyticsSummary{
		TotalSales:          totals.Sales,
		TotalExpenses:       totals.Expenses,
		TotalReimbursements: totals.Reimbursement,
		TotalMinistryFund:   totals.CollegeMinistryFund,
		TotalOffering:       totals.Offering,
		NetProfit:           totals.NetProfit,
		ReimbursementCount:  count,
		Trend:               trend,
	}, nil
}
