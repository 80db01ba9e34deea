package finstmt

import "time"

// Row labels, in display order. Each form collection is positional: the
// amount at index i belongs to label i.
var (
	IncomeRows = []string{
		"Borrower Salary",
		"Spouse Salary",
		"Interest and Dividend Income",
		"Business Income",
		"Capital Gains",
		"Net Rental Income",
		"Partnerships, S Corp, LLC & LLP Distributions",
		"Other Income (list)",
	}

	ExpenseRows = []string{
		"Payments on Real Estate Loans",
		"Real Estate Property Taxes",
		"Rental Payment",
		"Other Installment Payments",
		"Income Taxes",
		"Insurance",
		"Partnerships, S Corp, LLC & LLP Contributions",
		"Educational Expense",
		"Other Expense (list)",
	}

	AssetRows = []string{
		"Cash / Checking Accounts",
		"Cash / Money Market / CDs",
		"Readily Marketable Stocks & Bonds (A)",
		"Non-Readily Marketable Stocks & Bonds (B)",
		"Accounts & Notes Receivable (C)",
		"Real Estate (D)",
		"Net Cash Surrender Value of Life Insurance (E)",
		"Partnership, S Corp, LLC & LLP Interest (F)",
		"Vested Retirement Balance",
		"Personal Property and Other Assets (list)",
		"Various Autos",
	}

	LiabilityRows = []string{
		"Notes Payable to Banks",
		"Margin Accounts Payable",
		"Notes Payable to Others (G)",
		"Accounts Payable",
		"Real Estate Debt",
		"Taxes Payable (current year)",
		"Taxes Payable (previous year)",
		"Educational Expense",
		"Other Expense (list)",
		"Other Liabilities (list)",
		"Living expenses",
		"Net Worth",
		"Living expenses (total)",
	}
)

const (
	// NetWorthIndex is the derived liabilities row holding formatted net worth.
	NetWorthIndex = 11
	// LivingExpensesTotalIndex is a display-only row excluded from the sum.
	LivingExpensesTotalIndex = 12
)

type StatementType string

const (
	StatementIndividual StatementType = "individual"
	StatementJoint      StatementType = "joint"
	StatementTrust      StatementType = "trust"
)

// Statement is the personal financial statement as entered by the borrower.
type Statement struct {
	Income        []string      `json:"income"`
	Expense       []string      `json:"expense"`
	Assets        []string      `json:"assets"`
	Liabilities   []string      `json:"liabilities"`
	StatementType StatementType `json:"statementType"`
	AsOfDate      *time.Time    `json:"asOfDate"`
	TrustIRA      string        `json:"trustIRA"`
}

// NewStatement returns an empty joint statement with every row present.
func NewStatement() *Statement {
	return &Statement{
		Income:        make([]string, len(IncomeRows)),
		Expense:       make([]string, len(ExpenseRows)),
		Assets:        make([]string, len(AssetRows)),
		Liabilities:   make([]string, len(LiabilityRows)),
		StatementType: StatementJoint,
	}
}

type Totals struct {
	TotalIncome            float64 `json:"totalIncome"`
	TotalExpense           float64 `json:"totalExpense"`
	TotalAssets            float64 `json:"totalAssets"`
	TotalLiabilities       float64 `json:"totalLiabilities"`
	NetWorth               float64 `json:"netWorth"`
	LiabilitiesAndNetWorth float64 `json:"liabilitiesAndNetWorth"`
}

// Recompute derives every total from the entered rows and writes the
// formatted net worth into Liabilities[NetWorthIndex], growing Liabilities to
// its full length if needed. It touches nothing else, so calling it again
// with unchanged input is a no-op.
func Recompute(s *Statement) Totals {
	var t Totals
	t.TotalIncome = sum(s.Income)
	t.TotalExpense = sum(s.Expense)
	t.TotalAssets = sum(s.Assets)
	for i, v := range s.Liabilities {
		if i == NetWorthIndex || i == LivingExpensesTotalIndex {
			continue
		}
		t.TotalLiabilities += ParseAmount(v)
	}
	t.NetWorth = t.TotalAssets - t.TotalLiabilities
	t.LiabilitiesAndNetWorth = t.TotalLiabilities + t.NetWorth

	if len(s.Liabilities) < len(LiabilityRows) {
		grown := make([]string, len(LiabilityRows))
		copy(grown, s.Liabilities)
		s.Liabilities = grown
	}
	if formatted := FormatWholeCurrency(t.NetWorth); s.Liabilities[NetWorthIndex] != formatted {
		s.Liabilities[NetWorthIndex] = formatted
	}
	return t
}

func sum(values []string) float64 {
	var total float64
	for _, v := range values {
		total += ParseAmount(v)
	}
	return total
}
