// Package renderer turns portfolio reports into markdown documents.
package renderer

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

//go:embed templates/*.md
var templatesFS embed.FS

const (
	notAvailable     = "n/a"
	priceUnavailable = "price unavailable"
	chainSeparator   = " • "
	amountPlaces     = 8
)

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"usd":  usd,
	"time": formatTime,
}).ParseFS(templatesFS, "templates/*.md"))

// AssetRow is one line of the holdings table.
type AssetRow struct {
	Symbol     string
	Balance    string
	UnitPrice  string
	Value      string
	SinceLast  string
	SinceStart string
	Chains     string
}

// Portfolio is the view model of a valuation report.
type Portfolio struct {
	GeneratedAt     time.Time
	CycleID         string
	Total           string
	SinceLast       string
	SinceStart      string
	HasHistory      bool
	FirstBatchAt    time.Time
	LastBatchAt     time.Time
	Batches         int
	SnapshotWritten bool
	Assets          []AssetRow
	Warnings        []string
}

// NewPortfolio builds the view model of report. P/L columns read "n/a" when
// there is no recorded history and prices read "price unavailable" when the
// feed had no entry.
func NewPortfolio(report *entity.PortfolioReport) *Portfolio {
	pl := report.ProfitLoss
	p := &Portfolio{
		GeneratedAt:     report.GeneratedAt,
		CycleID:         report.CycleID,
		Total:           usd(report.Valuation.TotalUSD),
		HasHistory:      pl.HasHistory,
		FirstBatchAt:    pl.FirstBatchAt,
		LastBatchAt:     pl.LastBatchAt,
		Batches:         report.Batches,
		SnapshotWritten: report.SnapshotWritten,
		SinceLast:       change(pl.HasHistory, pl.SinceLast, pl.SinceLastPct),
		SinceStart:      change(pl.HasHistory, pl.SinceStart, pl.SinceStartPct),
	}

	for _, sym := range report.Valuation.Symbols() {
		a := report.Valuation.Assets[sym]
		row := AssetRow{
			Symbol:  sym,
			Balance: utils.FormatAmount(a.Balance, amountPlaces),
			Chains:  chains(a.Chains),
		}
		if a.Priced {
			row.UnitPrice = usd(a.UnitPrice)
			row.Value = usd(a.USDValue)
		} else {
			row.UnitPrice = priceUnavailable
			row.Value = priceUnavailable
		}
		apl := pl.Assets[sym]
		row.SinceLast = change(pl.HasHistory, apl.SinceLast, apl.SinceLastPct)
		row.SinceStart = change(pl.HasHistory, apl.SinceStart, apl.SinceStartPct)
		p.Assets = append(p.Assets, row)
	}

	for i := range report.Warnings {
		p.Warnings = append(p.Warnings, report.Warnings[i].Error())
	}
	return p
}

// RenderPortfolio renders a valuation report as markdown.
func RenderPortfolio(report *entity.PortfolioReport) string {
	return render("portfolio.md", NewPortfolio(report))
}

// Batch is one row of the history table.
type Batch struct {
	Timestamp time.Time
	Total     string
	Assets    string
}

// RenderHistory renders the recorded snapshot batches as markdown, most
// recent first.
func RenderHistory(history entity.SnapshotHistory) string {
	rows := make([]Batch, 0, len(history.Batches))
	for i := len(history.Batches) - 1; i >= 0; i-- {
		b := history.Batches[i]
		rows = append(rows, Batch{Timestamp: b.Timestamp, Total: usd(b.TotalUSD), Assets: batchAssets(b)})
	}
	return render("history.md", rows)
}

func render(name string, data any) string {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return fmt.Sprintf("error rendering %s: %v", name, err)
	}
	return b.String()
}

func usd(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func change(hasHistory bool, delta decimal.Decimal, pct entity.Percent) string {
	if !hasHistory {
		return notAvailable
	}
	sign := ""
	switch delta.Sign() {
	case 1:
		sign = "+"
	case -1:
		sign = "-"
	}
	return fmt.Sprintf("%s%s (%s)", sign, usd(delta.Abs()), pct.SignedString())
}

// chains renders a per-chain breakdown such as "base: 0.4 • ethereum: 0.6".
func chains(breakdown map[string]decimal.Decimal) string {
	names := utils.SortedKeys(breakdown)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, utils.FormatAmount(breakdown[name], amountPlaces)))
	}
	return strings.Join(parts, chainSeparator)
}

func batchAssets(b entity.SnapshotBatch) string {
	names := utils.SortedKeys(b.Values)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, usd(b.Values[name])))
	}
	return strings.Join(parts, chainSeparator)
}
