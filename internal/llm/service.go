// Package llm wraps the black-box structured-extraction service. The
// service is assumed unreliable: callers isolate per-call failures and
// always invoke it under a hard content-length ceiling.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Service is the extraction-service contract used by the ranker (relevance
// judgments) and the deep extraction coordinator (structured records).
type Service interface {
	// Name returns the backing provider name.
	Name() string

	// Extract produces a structured record from page content.
	Extract(ctx context.Context, req ExtractRequest) (*StructuredRecord, error)

	// JudgeRelevance scores how informative a page looks for company
	// intelligence, between 0 and 1.
	JudgeRelevance(ctx context.Context, title, snippet string) (float64, error)
}

// ExtractRequest is one structured-extraction call. Content must already be
// truncated to the caller's ceiling.
type ExtractRequest struct {
	URL     string
	Title   string
	Content string
}

// RecordField is one extracted dimension with its supporting local
// evidence IDs.
type RecordField struct {
	Value    string   `json:"value"`
	Evidence []string `json:"evidence,omitempty"`
}

// StructuredRecord is the parsed extraction output. Evidence IDs are local
// to the record; the synthesizer re-keys them globally.
type StructuredRecord struct {
	Summary      string                 `json:"summary"`
	EntityFields map[string]RecordField `json:"entity_fields"`
	Evidence     map[string]string      `json:"evidence"`
}

// ErrNotConfigured is returned by the disabled service. Callers treat it
// like any other extraction failure: recorded, never fatal.
var ErrNotConfigured = errors.New("extraction service not configured")

// Disabled is a Service that fails every call. It keeps the pipeline total
// when no provider is configured: ranking degrades to keyword-only and
// extraction yields placeholder units.
type Disabled struct{}

// Name returns the provider name.
func (Disabled) Name() string { return "disabled" }

// Extract always fails.
func (Disabled) Extract(ctx context.Context, req ExtractRequest) (*StructuredRecord, error) {
	return nil, ErrNotConfigured
}

// JudgeRelevance always fails.
func (Disabled) JudgeRelevance(ctx context.Context, title, snippet string) (float64, error) {
	return 0, ErrNotConfigured
}

// BuildExtractPrompt constructs the structured-extraction prompt.
func BuildExtractPrompt(url, title string) string {
	return fmt.Sprintf(`You are extracting structured company intelligence from one web page.

Page URL: %s
Page title: %s

Return ONLY a JSON object with this exact shape:
{
  "summary": "2-3 sentence summary of the page",
  "entity_fields": {
    "<dimension>": {"value": "<asserted value>", "evidence": ["<evidence id>", ...]}
  },
  "evidence": {
    "<evidence id>": "<verbatim excerpt from the page supporting the field>"
  }
}

Rules:
1. Dimensions are snake_case facts the page asserts (e.g. pricing_model,
   product_name, headquarters, founding_year, customer_segment).
2. Every entity field must cite at least one evidence id.
3. Every excerpt must be a verbatim quote from the provided content.
4. If the page asserts nothing usable, return empty objects for
   entity_fields and evidence.
5. Do not invent facts absent from the content.`, url, title)
}

// BuildRelevancePrompt constructs the lightweight relevance-judgment prompt.
func BuildRelevancePrompt(title, snippet string) string {
	return fmt.Sprintf(`Rate how informative this page is for building a structured intelligence report about the company that operates the site.

Title: %s
Content start:
%s

Respond with ONLY a single decimal number between 0.0 (boilerplate, nothing usable) and 1.0 (dense, substantive company facts).`, title, snippet)
}

// ParseRecord decodes a structured record from raw model output, tolerating
// markdown code fences around the JSON.
func ParseRecord(raw string) (*StructuredRecord, error) {
	cleaned := stripCodeFence(raw)

	var record StructuredRecord
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, fmt.Errorf("malformed extraction output: %w", err)
	}

	if record.EntityFields == nil {
		record.EntityFields = map[string]RecordField{}
	}
	if record.Evidence == nil {
		record.Evidence = map[string]string{}
	}

	return &record, nil
}

// ParseRelevance decodes a relevance judgment, clamping to [0, 1].
func ParseRelevance(raw string) (float64, error) {
	cleaned := strings.TrimSpace(stripCodeFence(raw))
	// some models prepend prose; take the first token that parses
	for _, field := range strings.Fields(cleaned) {
		field = strings.Trim(field, ",;:")
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			if v < 0 {
				return 0, nil
			}
			if v > 1 {
				return 1, nil
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("no numeric judgment in %q", raw)
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
