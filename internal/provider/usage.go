package provider

import "fmt"

// Rates is a provider's per-million-token pricing. Kept config-driven
// (internal/config.Config.ProviderRates) rather than a compile-time
// table, since per-model pricing goes stale the moment a vendor changes
// it — spec.md's design note flags this explicitly.
type Rates struct {
	PromptPerMillionUSD     float64
	CompletionPerMillionUSD float64
}

// EstimateCostUSD prices one Usage reading against rates. Returns 0 if
// rates are unset (a provider with no configured pricing tracks tokens
// but not cost).
func EstimateCostUSD(u Usage, rates Rates) float64 {
	promptCost := float64(u.PromptTokens) / 1_000_000 * rates.PromptPerMillionUSD
	completionCost := float64(u.CompletionTokens) / 1_000_000 * rates.CompletionPerMillionUSD
	return promptCost + completionCost
}

// FormatFooter renders the fixed usage footer appended once per agent
// turn. The shape is load-bearing (spec.md §4.2: "the footer format is
// fixed") since downstream components parse `Cost: $([\d.]+)` out of it
// to aggregate spend across a run — grounded on commands.go's
// usage/cost reporting, reshaped to the exact fixed layout the spec
// requires. costUSD <= 0 omits the cost line entirely, matching the
// teacher's `su.EstimatedCostUSD > 0` guard.
func FormatFooter(u Usage, costUSD float64) string {
	footer := fmt.Sprintf("\n\n---\nTokens: %d (%d in, %d out)", u.TotalTokens, u.PromptTokens, u.CompletionTokens)
	if costUSD > 0 {
		footer += fmt.Sprintf("\nCost: $%.6f", costUSD)
	}
	return footer
}

// AccumulateUsage sums per-round usage into a running total across an
// agent's tool-call loop (spec.md §4.2: one footer per turn, not per
// round).
func AccumulateUsage(total, round Usage) Usage {
	return Usage{
		PromptTokens:     total.PromptTokens + round.PromptTokens,
		CompletionTokens: total.CompletionTokens + round.CompletionTokens,
		TotalTokens:      total.TotalTokens + round.TotalTokens,
	}
}
