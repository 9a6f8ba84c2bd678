// Package report renders decisions and backtest results for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/backtest"
)

const cardWidth = 72

var (
	subtle = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	long   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	short  = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}
	none   = lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#A0A0A0"}

	labelStyle = lipgloss.NewStyle().Foreground(subtle).Width(12)
	titleStyle = lipgloss.NewStyle().Bold(true)
)

func actionColor(a domain.Action) lipgloss.AdaptiveColor {
	switch a {
	case domain.ActionLong:
		return long
	case domain.ActionShort:
		return short
	default:
		return none
	}
}

// DecisionCard renders a decision event as a bordered card.
func DecisionCard(e domain.DecisionEvent) string {
	color := actionColor(e.Action)

	source := string(e.Source)
	if e.Model != "" {
		source = fmt.Sprintf("%s (%s)", e.Source, e.Model)
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Foreground(color).Render(strings.ToUpper(e.Action.String())),
		"  ",
		lipgloss.NewStyle().Foreground(subtle).Render(e.Timestamp.UTC().Format("2006-01-02 15:04 UTC")),
	)

	rows := []string{header, ""}
	rows = append(rows, row("source", source))
	for _, f := range []struct {
		label string
		close string
		trend domain.Trend
	}{
		{"ETH", e.ETHClose, e.ETHTrend},
		{"BTC", e.BTCClose, e.BTCTrend},
		{"SOL", e.SOLClose, e.SOLTrend},
	} {
		if f.close == "" {
			continue
		}
		value := f.close
		if f.trend != "" {
			value = fmt.Sprintf("%s  %s", f.close, f.trend.Title())
		}
		rows = append(rows, row(f.label, value))
	}
	rows = append(rows, "", lipgloss.NewStyle().Width(cardWidth-4).Render(e.Rationale))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(cardWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// BacktestSummary renders one line per run plus the final accuracy.
func BacktestSummary(results []*backtest.Result) string {
	if len(results) == 0 {
		return lipgloss.NewStyle().Foreground(subtle).Render("no backtest runs")
	}

	rows := []string{titleStyle.Render("BACKTEST")}
	for i, r := range results {
		line := fmt.Sprintf("#%d  run %d  %d/%d correct  %.2f%%", i+1, r.RunID, r.Correct, r.Total, r.Accuracy*100)
		if r.Improved {
			line += "  prompt improved"
		}
		rows = append(rows, line)
	}

	last := results[len(results)-1]
	rows = append(rows, "", row("accuracy", fmt.Sprintf("%.2f%%", last.Accuracy*100)))
	if len(last.Failures) > 0 {
		rows = append(rows, row("failures", fmt.Sprintf("%d", len(last.Failures))))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
