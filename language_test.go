package goqueryrag_test

import (
	"math"
	"reflect"
	"testing"

	goqueryrag "github.com/inteligo-bi/go-query-rag"
)

func TestExtractKeywords(t *testing.T) {
	vocab := MockLanguageHandler{}.Vocabulary()

	t.Run("Folds accents and drops stopwords", func(t *testing.T) {
		got := vocab.ExtractKeywords("Qual o faturamento por filial em Março?")
		want := []string{"faturamento", "filial", "marco"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("Drops short tokens and duplicates", func(t *testing.T) {
		got := vocab.ExtractKeywords("vendas de TI e vendas do RH")
		want := []string{"vendas"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("Strips surrounding punctuation", func(t *testing.T) {
		got := vocab.ExtractKeywords("margem, ticket!")
		want := []string{"margem", "ticket"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("Empty text yields no keywords", func(t *testing.T) {
		if got := vocab.ExtractKeywords(""); len(got) != 0 {
			t.Errorf("Expected no keywords, got %v", got)
		}
	})
}

func TestMatchConcepts(t *testing.T) {
	vocab := MockLanguageHandler{}.Vocabulary()

	t.Run("Question may match several concepts", func(t *testing.T) {
		got := vocab.MatchConcepts("Qual o faturamento por filial em março?")
		want := []string{"revenue", "branch", "time"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("Trigger matching folds accents", func(t *testing.T) {
		got := vocab.MatchConcepts("resultados de MARÇO")
		want := []string{"time"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("No triggers no concepts", func(t *testing.T) {
		if got := vocab.MatchConcepts("previsao do tempo amanha"); len(got) != 0 {
			t.Errorf("Expected no concepts, got %v", got)
		}
	})
}

func TestClassifyIntent(t *testing.T) {
	rules := MockLanguageHandler{}.IntentRules()

	tests := []struct {
		question string
		want     goqueryrag.Intent
	}{
		{"Qual o faturamento por filial em março?", goqueryrag.IntentRevenueByBranch},
		{"Quem mais vendeu esse mês?", goqueryrag.IntentTopSalesperson},
		{"Qual o ticket médio do trimestre?", goqueryrag.IntentAverageTicket},
		{"Como está a margem bruta?", goqueryrag.IntentMargin},
		{"Qual o faturamento do vendedor Jose?", goqueryrag.IntentRevenueBySalesperson},
		{"Qual a receita total do ano?", goqueryrag.IntentRevenue},
		{"Previsao do tempo para amanha", goqueryrag.IntentOther},
		{"", goqueryrag.IntentOther},
	}

	for _, test := range tests {
		if got := goqueryrag.ClassifyIntent(test.question, rules); got != test.want {
			t.Errorf("ClassifyIntent(%q) = %q, want %q", test.question, got, test.want)
		}
	}
}

func TestClassifyIntentRuleOrder(t *testing.T) {
	// The question matches both the branch rule and the generic revenue
	// fallback; the earlier rule must win.
	rules := MockLanguageHandler{}.IntentRules()

	got := goqueryrag.ClassifyIntent("faturamento da filial Centro", rules)
	if got != goqueryrag.IntentRevenueByBranch {
		t.Errorf("Expected revenue-by-branch, got %q", got)
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("Identical strings score one", func(t *testing.T) {
		if got := goqueryrag.Similarity("faturamento por filial", "faturamento por filial"); got != 1 {
			t.Errorf("Expected 1, got %f", got)
		}
	})

	t.Run("Symmetric", func(t *testing.T) {
		a, b := "faturamento por filial", "faturamento total do ano"
		if goqueryrag.Similarity(a, b) != goqueryrag.Similarity(b, a) {
			t.Error("Expected symmetric similarity")
		}
	})

	t.Run("Disjoint vocabularies score zero", func(t *testing.T) {
		if got := goqueryrag.Similarity("saldo em caixa", "ticket medio"); got != 0 {
			t.Errorf("Expected 0, got %f", got)
		}
	})

	t.Run("Known overlap", func(t *testing.T) {
		// {a b c} vs {b c d}: intersection 2, union 4.
		got := goqueryrag.Similarity("a b c", "b c d")
		if math.Abs(got-0.5) > 1e-9 {
			t.Errorf("Expected 0.5, got %f", got)
		}
	})

	t.Run("Case insensitive", func(t *testing.T) {
		if got := goqueryrag.Similarity("Faturamento Filial", "faturamento filial"); got != 1 {
			t.Errorf("Expected 1, got %f", got)
		}
	})

	t.Run("Empty strings score zero", func(t *testing.T) {
		if got := goqueryrag.Similarity("", "faturamento"); got != 0 {
			t.Errorf("Expected 0, got %f", got)
		}
	})
}
