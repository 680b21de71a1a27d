package handler

import (
	goqueryrag "github.com/inteligo-bi/go-query-rag"
)

// defaultVocabulary is the built-in Portuguese analytical vocabulary.
// Triggers are matched after accent folding, so "mês" and "mes" are
// interchangeable.
var defaultVocabulary = goqueryrag.Vocabulary{
	Stopwords: []string{
		"a", "o", "as", "os", "um", "uma", "uns", "umas",
		"de", "do", "da", "dos", "das", "em", "no", "na", "nos", "nas",
		"por", "para", "com", "sem", "sob", "sobre", "entre", "ate",
		"e", "ou", "mas", "que", "qual", "quais", "quanto", "quanta",
		"quantos", "quantas", "como", "quando", "onde", "quem",
		"eu", "tu", "ele", "ela", "nos", "vos", "eles", "elas", "voce",
		"me", "te", "se", "lhe", "meu", "minha", "seu", "sua",
		"este", "esta", "esse", "essa", "aquele", "aquela", "isto", "isso",
		"foi", "ser", "estar", "tem", "ter", "ha", "era", "sao", "esta",
		"mais", "menos", "muito", "pouco", "todo", "toda", "todos", "todas",
		"ano", "mes", "dia", "hoje", "ontem",
	},
	Concepts: []goqueryrag.Concept{
		{Name: "revenue", Triggers: []string{"faturamento", "receita", "revenue", "vendas", "venda", "faturou"}},
		{Name: "payable", Triggers: []string{"a pagar", "pagar", "pagamento", "despesa", "fornecedor", "payable"}},
		{Name: "receivable", Triggers: []string{"a receber", "receber", "recebimento", "cobranca", "receivable"}},
		{Name: "overdue", Triggers: []string{"vencido", "vencida", "atraso", "atrasado", "inadimpl", "overdue"}},
		{Name: "balance", Triggers: []string{"saldo", "caixa", "fluxo de caixa", "balance", "disponibilidade"}},
		{Name: "ranking", Triggers: []string{"ranking", "top", "maior", "maiores", "melhor", "melhores", "quem mais", "mais vendeu"}},
		{Name: "time", Triggers: []string{"mes", "mensal", "periodo", "trimestre", "semestre", "anual", "janeiro", "fevereiro", "marco", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}},
		{Name: "margin", Triggers: []string{"margem", "lucro", "lucratividade", "rentabilidade", "margin"}},
		{Name: "ticket", Triggers: []string{"ticket medio", "ticket", "valor medio"}},
		{Name: "branch", Triggers: []string{"filial", "filiais", "loja", "lojas", "unidade", "unidades", "branch"}},
		{Name: "salesperson", Triggers: []string{"vendedor", "vendedora", "vendedores", "representante", "salesperson"}},
	},
	MeasurePrefixes: []string{
		"total", "qtd", "quant", "media", "medio", "margem", "ticket",
		"valor", "perc", "pct", "saldo", "custo", "faturamento", "receita",
	},
}

// defaultIntentRules is the ordered rule list for the closed intent set.
// More specific combined patterns are tested before the generic
// single-keyword fallbacks for the same concept.
var defaultIntentRules = []goqueryrag.IntentRule{
	{Intent: goqueryrag.IntentAverageTicket, Any: []string{"ticket medio", "ticket médio", "valor medio da venda"}},
	{Intent: goqueryrag.IntentMargin, Any: []string{"margem", "lucratividade", "rentabilidade"}},
	{Intent: goqueryrag.IntentTopSalesperson, Any: []string{"quem mais vendeu", "melhor vendedor", "ranking de vendedor", "top vendedor", "maior vendedor"}},
	{Intent: goqueryrag.IntentRevenueByBranch, All: []string{"filial"}, Any: []string{"faturamento", "receita", "venda", "vendeu"}},
	{Intent: goqueryrag.IntentRevenueByBranch, All: []string{"loja"}, Any: []string{"faturamento", "receita", "venda", "vendeu"}},
	{Intent: goqueryrag.IntentRevenueBySalesperson, All: []string{"vendedor"}, Any: []string{"faturamento", "receita", "venda", "vendeu"}},
	{Intent: goqueryrag.IntentPayable, Any: []string{"a pagar", "contas a pagar", "pagamento"}},
	{Intent: goqueryrag.IntentReceivable, Any: []string{"a receber", "contas a receber", "recebimento"}},
	{Intent: goqueryrag.IntentBalance, Any: []string{"saldo", "fluxo de caixa", "caixa"}},
	{Intent: goqueryrag.IntentRevenue, Any: []string{"faturamento", "receita", "vendeu", "vendas"}},
}
