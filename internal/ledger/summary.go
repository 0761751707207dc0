package ledger

import "ledger/internal/core"

// Summary is the aggregate financial position of a set of transactions.
// NetProfit may be negative.
type Summary struct {
	TotalIncome      core.Money
	TotalExpenses    core.Money
	NetProfit        core.Money
	TransactionCount int
}

// Summarize totals txs in integer cents. An empty input gives the zero Summary.
func Summarize(txs []core.Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
		}
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)
	s.TransactionCount = len(txs)
	return s
}
