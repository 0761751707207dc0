package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// ChartPoint is the income, expenses and net of one calendar day.
type ChartPoint struct {
	Date      core.Date
	Income    core.Money
	Expenses  core.Money
	NetProfit core.Money
}

// BucketByDay groups txs by calendar day, ascending. Only days with at least
// one transaction appear; gaps are left for the caller to fill.
func BucketByDay(txs []core.Transaction) []ChartPoint {
	byDay := make(map[string]*ChartPoint)
	for _, tx := range txs {
		day := core.DateOf(tx.Date.Time)
		key := day.String()
		p, ok := byDay[key]
		if !ok {
			p = &ChartPoint{Date: day}
			byDay[key] = p
		}
		switch tx.Type {
		case core.Income:
			p.Income = p.Income.Add(tx.Amount)
		case core.Expense:
			p.Expenses = p.Expenses.Add(tx.Amount)
		}
	}

	out := make([]ChartPoint, 0, len(byDay))
	for _, p := range byDay {
		p.NetProfit = p.Income.Sub(p.Expenses)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// ChartColumns is a series laid out column-wise, one slice per measure, all
// of the same length as Labels.
type ChartColumns struct {
	Labels    []string
	Income    []core.Money
	Expenses  []core.Money
	NetProfit []core.Money
}

// Columns transposes a series into ChartColumns.
func Columns(series []ChartPoint) ChartColumns {
	c := ChartColumns{
		Labels:    make([]string, 0, len(series)),
		Income:    make([]core.Money, 0, len(series)),
		Expenses:  make([]core.Money, 0, len(series)),
		NetProfit: make([]core.Money, 0, len(series)),
	}
	for _, p := range series {
		c.Labels = append(c.Labels, p.Date.String())
		c.Income = append(c.Income, p.Income)
		c.Expenses = append(c.Expenses, p.Expenses)
		c.NetProfit = append(c.NetProfit, p.NetProfit)
	}
	return c
}

// SeriesStats are headline figures derived from a sparse day series.
// Averages are taken over days that have data, not over calendar days.
type SeriesStats struct {
	ActiveDays       int
	AvgDailyIncome   core.Money
	AvgDailyExpenses core.Money
	AvgDailyNet      core.Money
	// BestDay and WorstDay are nil for an empty series. Ties go to the
	// earliest day.
	BestDay  *ChartPoint
	WorstDay *ChartPoint
}

// ComputeStats derives SeriesStats from a series as produced by BucketByDay.
func ComputeStats(series []ChartPoint) SeriesStats {
	st := SeriesStats{ActiveDays: len(series)}
	if len(series) == 0 {
		return st
	}

	var income, expenses core.Money
	best, worst := 0, 0
	for i, p := range series {
		income = income.Add(p.Income)
		expenses = expenses.Add(p.Expenses)
		if p.NetProfit.Cents > series[best].NetProfit.Cents {
			best = i
		}
		if p.NetProfit.Cents < series[worst].NetProfit.Cents {
			worst = i
		}
	}

	st.AvgDailyIncome = average(income, len(series))
	st.AvgDailyExpenses = average(expenses, len(series))
	st.AvgDailyNet = average(income.Sub(expenses), len(series))
	b, w := series[best], series[worst]
	st.BestDay, st.WorstDay = &b, &w
	return st
}

// average divides total by n, rounding half away from zero to the cent.
func average(total core.Money, n int) core.Money {
	q := decimal.NewFromInt(total.Cents).Div(decimal.NewFromInt(int64(n))).Round(0)
	return core.Money{Cents: q.IntPart()}
}
