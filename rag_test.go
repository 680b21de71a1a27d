package goqueryrag_test

import (
	"errors"
	"fmt"
	"sync"
	"time"

	goqueryrag "github.com/inteligo-bi/go-query-rag"
)

// MockLLM implements the LLM interface for testing.
type MockLLM struct {
	chatResponse string
	chatError    error

	chatCalls [][]string
}

func (m *MockLLM) Chat(messages []string) (string, error) {
	m.chatCalls = append(m.chatCalls, messages)
	if m.chatError != nil {
		return "", m.chatError
	}
	return m.chatResponse, nil
}

// MockQueryStore implements the QueryStore interface with in-memory maps.
type MockQueryStore struct {
	mu sync.Mutex

	queriesByID   map[string]goqueryrag.LearnedQuery
	queriesByHash map[string]goqueryrag.LearnedQuery
	examples      []goqueryrag.TrainingExample

	touched     map[string]time.Time
	upsertCalls int
	nextID      int

	failAll bool
}

var errMockStore = errors.New("store unavailable")

func newMockQueryStore() *MockQueryStore {
	return &MockQueryStore{
		queriesByID:   make(map[string]goqueryrag.LearnedQuery),
		queriesByHash: make(map[string]goqueryrag.LearnedQuery),
		touched:       make(map[string]time.Time),
	}
}

func (m *MockQueryStore) LearnedQuery(id string) (goqueryrag.LearnedQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return goqueryrag.LearnedQuery{}, errMockStore
	}
	query, ok := m.queriesByID[id]
	if !ok {
		return goqueryrag.LearnedQuery{}, goqueryrag.ErrQueryNotFound
	}
	return query, nil
}

func (m *MockQueryStore) LearnedQueryByHash(datasetID, hash string) (goqueryrag.LearnedQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return goqueryrag.LearnedQuery{}, errMockStore
	}
	query, ok := m.queriesByHash[datasetID+"/"+hash]
	if !ok {
		return goqueryrag.LearnedQuery{}, goqueryrag.ErrQueryNotFound
	}
	return query, nil
}

func (m *MockQueryStore) SuccessfulQueriesByIntent(
	datasetID string,
	intent goqueryrag.Intent,
	limit int,
) ([]goqueryrag.LearnedQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return nil, errMockStore
	}

	results := make([]goqueryrag.LearnedQuery, 0)
	for _, query := range m.queriesByHash {
		if query.DatasetID != datasetID || query.Intent != intent || !query.Success {
			continue
		}
		results = append(results, query)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *MockQueryStore) UpsertLearnedQuery(query goqueryrag.LearnedQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return errMockStore
	}
	if query.ID == "" {
		m.nextID++
		query.ID = fmt.Sprintf("lq-%d", m.nextID)
	}
	m.queriesByID[query.ID] = query
	m.queriesByHash[query.DatasetID+"/"+query.QueryHash] = query
	m.upsertCalls++
	return nil
}

func (m *MockQueryStore) TrainingExamples(datasetID string) ([]goqueryrag.TrainingExample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return nil, errMockStore
	}

	results := make([]goqueryrag.TrainingExample, 0)
	for _, example := range m.examples {
		if example.DatasetID == datasetID {
			results = append(results, example)
		}
	}
	return results, nil
}

func (m *MockQueryStore) TouchTrainingExample(datasetID, id string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return errMockStore
	}
	m.touched[datasetID+"/"+id] = usedAt
	return nil
}

func (m *MockQueryStore) learnedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queriesByHash)
}

func (m *MockQueryStore) storedByHash(datasetID, hash string) (goqueryrag.LearnedQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	query, ok := m.queriesByHash[datasetID+"/"+hash]
	return query, ok
}

// MockLanguageHandler implements the LanguageHandler interface with a
// small bilingual test vocabulary.
type MockLanguageHandler struct {
	caps goqueryrag.ContextCaps
}

func (h MockLanguageHandler) Vocabulary() goqueryrag.Vocabulary {
	return goqueryrag.Vocabulary{
		Stopwords: []string{
			"qual", "quais", "para", "como", "esse", "essa", "por", "quem", "mais", "mes",
		},
		Concepts: []goqueryrag.Concept{
			{Name: "revenue", Triggers: []string{"faturamento", "receita", "vendeu", "vendas"}},
			{Name: "branch", Triggers: []string{"filial", "loja"}},
			{Name: "salesperson", Triggers: []string{"vendedor", "vendeu"}},
			{Name: "margin", Triggers: []string{"margem"}},
			{Name: "ticket", Triggers: []string{"ticket"}},
			{Name: "time", Triggers: []string{"mes", "marco", "trimestre"}},
		},
		MeasurePrefixes: []string{"total", "margem", "ticket", "media"},
	}
}

func (h MockLanguageHandler) IntentRules() []goqueryrag.IntentRule {
	return []goqueryrag.IntentRule{
		{Intent: goqueryrag.IntentAverageTicket, All: []string{"ticket"}},
		{Intent: goqueryrag.IntentMargin, All: []string{"margem"}},
		{Intent: goqueryrag.IntentTopSalesperson, All: []string{"mais", "vendeu"}},
		{Intent: goqueryrag.IntentRevenueByBranch, All: []string{"filial"}, Any: []string{"faturamento", "receita", "venda"}},
		{Intent: goqueryrag.IntentRevenueBySalesperson, All: []string{"vendedor"}, Any: []string{"faturamento", "venda"}},
		{Intent: goqueryrag.IntentRevenue, Any: []string{"faturamento", "receita"}},
	}
}

func (h MockLanguageHandler) ContextCaps() goqueryrag.ContextCaps {
	if h.caps != (goqueryrag.ContextCaps{}) {
		return h.caps
	}
	return goqueryrag.ContextCaps{
		MaxMeasures:      15,
		MaxQueries:       5,
		MaxExamples:      3,
		MaxTableColumns:  6,
		MaxBaseTokens:    600,
		MaxContextTokens: 4000,
	}
}

func (h MockLanguageHandler) BaseExcerpt(text string, _ int) string {
	return text
}

// sampleDoc is a small but complete knowledge document exercising every
// section the parser knows about.
const sampleDoc = `<<<BASE>>>
# Modelo de Vendas
O modelo cobre vendas, clientes e filiais da rede.

# Convencoes
Valores monetarios em reais, datas no formato ISO.
<<<END BASE>>>

<<<MEASURES>>>
| Medida | Descricao | Quando Usar | Area |
|--------|-----------|-------------|------|
| Total Vendas | Soma do valor vendido | Perguntas sobre faturamento | Comercial |
| Ticket Medio | Valor medio por venda | Perguntas sobre ticket | Comercial |
| Margem Bruta | Lucro sobre o custo | Perguntas sobre margem | Financeiro |

# Total Vendas
Formula: SUM(Vendas.Valor)
Tabela: Vendas
Formato: R$ #,##0.00
Colunas: Vendas.Valor, Vendas.Data
<<<END MEASURES>>>

<<<TABLES>>>
# Vendas
Tabela fato com uma linha por item vendido.

| Coluna | Tipo | Uso | Exemplos |
|--------|------|-----|----------|
| Vendas.Data | date | filtro | 2024-01-15 |
| Vendas.Valor | decimal | - | 150.00 |
| Vendas.Filial | text | filtro, agrupamento | Centro, Norte |

# Clientes

| Coluna | Tipo | Uso |
|--------|------|-----|
| Clientes.Nome | text | agrupamento |
<<<END TABLES>>>

<<<QUERIES>>>
# Faturamento

| ID | Pergunta | Medidas | Agrupadores | Filtros |
|----|----------|---------|-------------|---------|
| Q1 | Qual o faturamento por filial? | Total Vendas | Vendas.Filial | - |
| Q2 | Qual o ticket medio do trimestre? | Ticket Medio | - | Vendas.Data |

# Rentabilidade

| ID | Pergunta | Medidas |
|----|----------|---------|
| Q3 | Qual a margem bruta do ano? | Margem Bruta |
<<<END QUERIES>>>

<<<EXAMPLES>>>
# Exemplo 1
Pergunta: Qual o faturamento da filial Centro?
Medidas: Total Vendas
Filtros: Vendas.Filial
Resposta: "O faturamento da filial Centro foi de R$ 10.000,00."

# Exemplo 2
Pergunta: Quem mais vendeu no trimestre?
Medidas: Total Vendas
Agrupadores: Clientes.Nome
Ordenacao: Total Vendas desc
Limite: 5
Resposta: "O vendedor com maior faturamento foi Jose."
<<<END EXAMPLES>>>
`
