package internal

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tiktoken-go/tokenizer"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EncodeStringByTiktoken encodes a string into token IDs using the GPT-4o tokenizer.
// It returns a slice of token IDs and an error if tokenization fails.
func EncodeStringByTiktoken(content string) ([]uint, error) {
	enc, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer: %w", err)
	}

	ids, _, err := enc.Encode(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string: %w", err)
	}

	return ids, nil
}

// DecodeTokensByTiktoken decodes token IDs back into a string using the
// GPT-4o tokenizer.
func DecodeTokensByTiktoken(tokenIDs []uint) (string, error) {
	enc, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return "", fmt.Errorf("failed to get tokenizer: %w", err)
	}

	content, err := enc.Decode(tokenIDs)
	if err != nil {
		return "", fmt.Errorf("failed to decode tokens: %w", err)
	}

	return content, nil
}

// CountTokens returns the GPT-4o token count of content. It falls back to a
// whitespace word count when the tokenizer is unavailable, so callers can
// always rely on a usable size estimate.
func CountTokens(content string) int {
	ids, err := EncodeStringByTiktoken(content)
	if err != nil {
		return len(strings.Fields(content))
	}
	return len(ids)
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases content and strips diacritical marks, so that
// "Março" and "marco" compare equal. Input that cannot be transformed is
// lower-cased as-is.
func Fold(content string) string {
	folded, _, err := transform.String(foldChain, content)
	if err != nil {
		folded = content
	}
	return strings.ToLower(folded)
}
