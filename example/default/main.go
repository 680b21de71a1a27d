package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goqueryrag "github.com/inteligo-bi/go-query-rag"
	"github.com/inteligo-bi/go-query-rag/handler"
	"github.com/inteligo-bi/go-query-rag/llm"
	"github.com/inteligo-bi/go-query-rag/storage"
	"gopkg.in/yaml.v2"
)

type config struct {
	StorePath string `yaml:"store_path"`
	DocPath   string `yaml:"doc_path"`
	DatasetID string `yaml:"dataset_id"`

	VocabularyPath string `yaml:"vocabulary_path"`

	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`

	LogLevel string `yaml:"log_level"`
}

const configPath = "config.yaml"

func main() {
	// Load configuration from YAML file
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		return
	}

	// Set log level based on configuration
	logLevel := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	defaultHandler := handler.Default{}
	if cfg.VocabularyPath != "" {
		vocab, err := handler.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			fmt.Printf("Error loading vocabulary: %v\n", err)
			return
		}
		defaultHandler.CustomVocabulary = &vocab
	}

	store, err := storage.NewSQLite(cfg.StorePath)
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Error closing store: %v\n", err)
		}
	}()

	temp := float32(0.1)

	openAI := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, llm.Parameters{
		Temperature: &temp,
	}, logger)

	fileData, err := os.ReadFile(cfg.DocPath)
	if err != nil {
		fmt.Printf("Error reading documentation: %v\n", err)
		return
	}

	doc := goqueryrag.ParseDocumentation(string(fileData))
	for _, gap := range doc.Errors {
		fmt.Printf("Documentation gap: %s\n", gap)
	}

	// Start the query loop
	query(cfg.DatasetID, doc, defaultHandler, store, openAI, logger)
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &cfg, nil
}

func query(
	datasetID string,
	doc goqueryrag.ParsedDocumentation,
	docHandler handler.Default,
	store *storage.SQLite,
	model goqueryrag.LLM,
	logger *slog.Logger,
) {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("\nEnter your question (or 'exit' to quit): ")
		question, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		question = strings.TrimSpace(question)
		if strings.EqualFold(question, "exit") {
			break
		}
		if question == "" {
			continue
		}

		reply, err := goqueryrag.Ask(datasetID, question, doc, docHandler, store, model, logger)
		if err != nil {
			fmt.Printf("Error answering question: %v\n", err)
			continue
		}
		reply = llm.RemoveThinkTags(reply)

		fmt.Printf("\n%s\n", reply)

		fmt.Print("\nDid the generated query work? (y/n/skip): ")
		verdict, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		switch strings.ToLower(strings.TrimSpace(verdict)) {
		case "y":
			goqueryrag.RecordQuery(datasetID, question, reply, true, docHandler, store, logger)
		case "n":
			goqueryrag.RecordQuery(datasetID, question, reply, false, docHandler, store, logger)
		}
	}
}
