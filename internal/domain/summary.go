package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// CategoryTotals holds per-category sums. NetProfit excludes offerings.
type CategoryTotals struct {
	Sales               decimal.Decimal `json:"sales"`
	Expenses            decimal.Decimal `json:"expenses"`
	Reimbursement       decimal.Decimal `json:"reimbursement"`
	CollegeMinistryFund decimal.Decimal `json:"college_ministry_fund"`
	Offering            decimal.Decimal `json:"offering"`
	NetProfit           decimal.Decimal `json:"net_profit"`
}

// Add accumulates amount into the bucket for category.
func (t *CategoryTotals) Add(category Category, amount decimal.Decimal) {
	switch category {
	case CategorySales:
		t.Sales = t.Sales.Add(amount)
	case CategoryExpense:
		t.Expenses = t.Expenses.Add(amount)
	case CategoryReimbursement:
		t.Reimbursement = t.Reimbursement.Add(amount)
	case CategoryMinistryFund:
		t.CollegeMinistryFund = t.CollegeMinistryFund.Add(amount)
	case CategoryOffering:
		t.Offering = t.Offering.Add(amount)
	}
}

// Settle recomputes NetProfit from the buckets.
func (t *CategoryTotals) Settle() {
	t.NetProfit = NetProfit(t.Sales, t.Expenses, t.Reimbursement, t.CollegeMinistryFund)
}

// NetProfit is sales minus expenses, reimbursements and ministry fund.
func NetProfit(sales, expenses, reimbursements, ministryFund decimal.Decimal) decimal.Decimal {
	return sales.Sub(expenses).Sub(reimbursements).Sub(ministryFund)
}

// DailySummaryRow aggregates approved entries sharing a date, label and author.
type DailySummaryRow struct {
	Date     civil.Date `json:"date"`
	UserID   int64      `json:"user_id"`
	UserName *string    `json:"user_name"`
	Label    *string    `json:"label"`
	CategoryTotals
}

// DailySummary is the grouped report plus its grand totals.
type DailySummary struct {
	Rows   []DailySummaryRow `json:"rows"`
	Totals CategoryTotals    `json:"totals"`
}

// TrendPoint is one day of sales and expenses.
type TrendPoint struct {
	Date     civil.Date      `json:"date"`
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
}

// AnalyticsSummary is the period report served by the analytics endpoint.
type AnalyticsSummary struct {
	TotalSales          decimal.Decimal `json:"total_sales"`
	TotalExpenses       decimal.Decimal `json:"total_expenses"`
	TotalReimbursements decimal.Decimal `json:"total_reimbursements"`
	TotalMinistryFund   decimal.Decimal `json:"total_ministry_fund"`
	TotalOffering       decimal.Decimal `json:"total_offering"`
	NetProfit           decimal.Decimal `json:"net_profit"`
	ReimbursementCount  int             `json:"reimbursement_count"`
	Trend               []TrendPoint    `json:"trend"`
}
