// Package ai provides strict extraction of JSON payloads from model completions.
package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

const fence = "```"

// Extractor turns a provider completion into exactly one JSON value.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the JSON value carried by raw, or a MalformedResponse error
// whose reason tells an empty completion apart from a parse failure.
func (e *Extractor) Extract(raw domain.RawResponse) (json.RawMessage, error) {
	if !raw.HasText {
		if raw.CandidateCount == 0 {
			return nil, domain.NewError(domain.KindMalformedResponse, domain.ReasonNoCandidates, nil)
		}
		return nil, domain.NewError(domain.KindMalformedResponse, domain.ReasonEmptyCompletion, nil)
	}
	return e.ExtractText(raw.Text)
}

// ExtractText strips one optional fence pair and parses the remainder strictly.
func (e *Extractor) ExtractText(text string) (json.RawMessage, error) {
	body, reason := stripFences(text)
	if reason != "" {
		return nil, domain.NewError(domain.KindMalformedResponse, reason, nil)
	}
	return decodeSingle(body)
}

// stripFences removes a single leading fence (with optional language tag) and
// its matching trailing fence. A non-empty reason reports a broken fence pair.
func stripFences(text string) (string, string) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", domain.ReasonEmptyBody
	}
	if !strings.HasPrefix(s, fence) {
		if strings.HasSuffix(s, fence) {
			return "", domain.ReasonUnbalancedFence
		}
		return s, ""
	}

	rest := s[len(fence):]
	tagEnd := 0
	for tagEnd < len(rest) && isTagByte(rest[tagEnd]) {
		tagEnd++
	}
	// a tag must be followed by whitespace, otherwise the bytes belong to the body
	if tagEnd == len(rest) || unicode.IsSpace(rune(rest[tagEnd])) {
		rest = rest[tagEnd:]
	}

	if !strings.HasSuffix(rest, fence) {
		return "", domain.ReasonUnterminatedFence
	}
	body := strings.TrimSpace(strings.TrimSuffix(rest, fence))
	if body == "" {
		return "", domain.ReasonEmptyBody
	}
	return body, ""
}

func isTagByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '+' || b == '.' || b == '-':
		return true
	}
	return false
}

// decodeSingle parses exactly one JSON value; anything after it is an error.
func decodeSingle(body string) (json.RawMessage, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return nil, domain.NewError(domain.KindMalformedResponse, domain.ReasonInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domain.NewError(domain.KindMalformedResponse, domain.ReasonTrailingData, nil)
	}
	return bytes.Clone(v), nil
}
