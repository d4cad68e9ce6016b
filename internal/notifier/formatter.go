package notifier

import (
	"fmt"
	"sort"
	"strings"

	"VolSentinel/internal/model"
)

// FormatDegradedAlert formats the alert sent after a sustained degraded streak.
func FormatDegradedAlert(symbol string, streak int, reason model.DegradedReason) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚨 <b>%s data degraded</b>\n\n", symbol))
	b.WriteString(fmt.Sprintf("Consecutive degraded cycles: %d\n", streak))
	b.WriteString(fmt.Sprintf("Last reason: <code>%s</code>\n", reason))
	b.WriteString("No VBI score is being produced for this currency.")
	return b.String()
}

// FormatResult renders one cycle result for Telegram display.
func FormatResult(res *model.VbiResult) string {
	if res.Degraded() {
		return fmt.Sprintf("%s: DEGRADED (%s) | %s", res.Symbol, res.Reason, res.TsISOUTC)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b> %s %d", res.Symbol, stateIcon(res.State), *res.Score))
	b.WriteString(fmt.Sprintf(" [%s]", res.State))
	if res.Pattern != "" && res.Pattern != model.PatternNeutral {
		b.WriteString(fmt.Sprintf(" %s", res.Pattern))
	}
	b.WriteString(fmt.Sprintf("\n  IV %.2f / %.2f / %.2f | slope %+.2f | curv %+.2f",
		*res.NearIV, *res.MidIV, *res.FarIV, *res.IVSlope, *res.Curvature))
	if res.Skew != nil {
		b.WriteString(fmt.Sprintf(" | skew %.3f", *res.Skew))
	}
	return b.String()
}

// FormatStatus renders the last known result of every currency.
func FormatStatus(last map[string]*model.VbiResult) string {
	if len(last) == 0 {
		return "No cycle has completed yet."
	}
	symbols := make([]string, 0, len(last))
	for s := range last {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var b strings.Builder
	b.WriteString("📊 <b>VBI status</b>\n\n")
	for _, s := range symbols {
		b.WriteString(FormatResult(last[s]))
		b.WriteString("\n")
	}
	return b.String()
}

func stateIcon(state model.VbiState) string {
	switch state {
	case model.StateCold:
		return "🧊"
	case model.StateWarm:
		return "🌤"
	case model.StateHot:
		return "🔥"
	default:
		return "⚠️"
	}
}
