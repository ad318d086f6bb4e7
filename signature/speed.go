package signature

import "time"

// SpeedBand is a serving-model fingerprint: a provider/model pair and the
// tokens-per-second range it typically streams at.
type SpeedBand struct {
	Provider string
	Model    string
	MinTPS   float64
	MaxTPS   float64
}

// SpeedBands are evaluated in order; the first band whose half-open range
// [MinTPS, MaxTPS) contains the observed TPS wins. Timing varies with load,
// so the ranges are coarse and only separate model classes, not versions.
var SpeedBands = []SpeedBand{
	{Provider: "Groq", Model: "Llama 3 (LPU)", MinTPS: 200, MaxTPS: 2000},
	{Provider: "Anthropic", Model: "Claude 3.5 Haiku", MinTPS: 120, MaxTPS: 200},
	{Provider: "OpenAI", Model: "gpt-4o-mini", MinTPS: 100, MaxTPS: 120},
	{Provider: "OpenAI", Model: "gpt-4o", MinTPS: 60, MaxTPS: 100},
	{Provider: "Anthropic", Model: "Claude 3.5 Sonnet", MinTPS: 40, MaxTPS: 60},
	{Provider: "OpenAI", Model: "gpt-4", MinTPS: 20, MaxTPS: 40},
	{Provider: "Anthropic", Model: "Claude 3 Opus", MinTPS: 10, MaxTPS: 20},
}

// reasoningTTFT and reasoningTPS bound the slow-start/fast-stream profile of
// reasoning models: a long silent thinking phase followed by a fast answer
// stream. The band table cannot express that shape, so it is checked first.
const (
	reasoningTTFT = 3 * time.Second
	reasoningTPS  = 50.0
)

// InferModel maps observed chat-response timing to a serving-model label.
// Returns "" when no fingerprint applies.
func InferModel(ttft time.Duration, tps float64) string {
	if ttft > reasoningTTFT && tps > reasoningTPS {
		return "Reasoning Model (o1 / DeepSeek R1)"
	}
	for _, b := range SpeedBands {
		if tps >= b.MinTPS && tps < b.MaxTPS {
			return b.Provider + " - " + b.Model
		}
	}
	return ""
}
