package llm

import "testing"

func TestRemoveThinkTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "No tags",
			input: "SUMMARIZE [Total Vendas]",
			want:  "SUMMARIZE [Total Vendas]",
		},
		{
			name:  "Single block",
			input: "<think>reasoning here</think>SUMMARIZE [Total Vendas]",
			want:  "SUMMARIZE [Total Vendas]",
		},
		{
			name:  "Multiline block",
			input: "<think>line one\nline two</think>\nanswer",
			want:  "\nanswer",
		},
		{
			name:  "Multiple blocks",
			input: "<think>a</think>first<think>b</think>second",
			want:  "firstsecond",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := RemoveThinkTags(test.input); got != test.want {
				t.Errorf("Expected %q, got %q", test.want, got)
			}
		})
	}
}
