// Package llm provides clients satisfying the root LLM interface, so the
// assembled context can be handed to a real model without the caller
// writing transport code. The library itself never parses model replies.
package llm

import "regexp"

// Parameters contains the optional sampling configuration shared by the
// LLM clients. Nil fields keep the provider defaults.
type Parameters struct {
	Temperature      *float32 `yaml:"temperature"`
	TopP             *float32 `yaml:"topP"`
	TopK             *int     `yaml:"topK"`
	FrequencyPenalty *float32 `yaml:"frequencyPenalty"`
	PresencePenalty  *float32 `yaml:"presencePenalty"`
	Seed             *int     `yaml:"seed"`
	MaxTokens        *int     `yaml:"maxTokens"`
	Stop             []string `yaml:"stop"`
}

var thinkTagRegexp = regexp.MustCompile(`(?s)<think>.*?</think>`)

// RemoveThinkTags removes <think> blocks from a model reply. Useful with
// reasoning models whose scratchpad should not reach end users.
func RemoveThinkTags(input string) string {
	return thinkTagRegexp.ReplaceAllString(input, "")
}
