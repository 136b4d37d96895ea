package oracle

// ModelPricing holds per-1k-token prices for one oracle model, in USD.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Token estimation constants. Usage is estimated from character counts rather
// than oracle-reported token counts: roughly four characters per token, a
// fixed per-call prompt overhead, and a fixed 70/30 input/output split. This
// is a deliberate approximation for cost tracking, not a billing-grade
// measurement.
const (
	charsPerToken     = 4
	promptOverhead    = 120
	inputTokenShare   = 0.7
	outputTokenShare  = 0.3
	defaultPricingKey = "default"
)

var pricingTable = map[string]ModelPricing{
	"gpt-4o":          {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4o-mini":     {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4-turbo":     {InputPer1K: 0.01, OutputPer1K: 0.03},
	"gpt-3.5-turbo":   {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	defaultPricingKey: {InputPer1K: 0.001, OutputPer1K: 0.002},
}

// Pricing returns the price table entry for a model, falling back to a
// conservative default for unknown models.
func Pricing(model string) ModelPricing {
	if p, ok := pricingTable[model]; ok {
		return p
	}
	return pricingTable[defaultPricingKey]
}

// EstimateUsage estimates token usage and cost for one classification call.
func EstimateUsage(model string, req ClassifyRequest) (tokens int, cost float64) {
	chars := len(req.Word) + promptOverhead*charsPerToken
	for _, l := range req.Languages {
		chars += len(l) + 2
	}
	for _, c := range req.Categories {
		chars += len(c) + 2
	}

	tokens = chars / charsPerToken
	if tokens < 1 {
		tokens = 1
	}

	p := Pricing(model)
	inputTokens := float64(tokens) * inputTokenShare
	outputTokens := float64(tokens) * outputTokenShare
	cost = inputTokens/1000*p.InputPer1K + outputTokens/1000*p.OutputPer1K

	return tokens, cost
}
