package internal

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Março", "marco"},
		{"FATURAMENTO", "faturamento"},
		{"ticket médio", "ticket medio"},
		{"já vendeu", "ja vendeu"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}

	for _, test := range tests {
		if got := Fold(test.in); got != test.want {
			t.Errorf("Fold(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestCountTokens(t *testing.T) {
	if got := CountTokens(""); got != 0 {
		t.Errorf("Expected 0 tokens for empty string, got %d", got)
	}

	short := CountTokens("faturamento por filial")
	if short <= 0 {
		t.Errorf("Expected positive token count, got %d", short)
	}

	long := CountTokens("faturamento por filial em todos os meses do ano passado e deste ano")
	if long <= short {
		t.Errorf("Expected longer text to count more tokens, got %d vs %d", long, short)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	content := "Qual o faturamento por filial?"

	ids, err := EncodeStringByTiktoken(content)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	decoded, err := DecodeTokensByTiktoken(ids)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if decoded != content {
		t.Errorf("Expected %q, got %q", content, decoded)
	}
}
