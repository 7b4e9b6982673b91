package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"talentmatch/internal/ai"
	"talentmatch/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Scorer evaluates candidate text against opportunity text through Gemini
// and parses the response into a validated ai.Assessment.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200

	// The oracle may omit education_match; a neutral mid-range value is
	// assumed in that case.
	defaultEducationMatch = 50
)

// requiredFields must all be present in the oracle's response. A missing
// field is a parse failure, never a zero-filled record.
var requiredFields = []string{
	"overall", "skills_match", "experience_match",
	"grade", "recommendation", "key_strength",
}

var integerFields = []string{
	"overall", "skills_match", "experience_match", "education_match",
}

func NewScorer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Evaluate implements ai.Oracle.
func (s *Scorer) Evaluate(ctx context.Context, candidateText, opportunityText string) (*ai.Assessment, error) {
	if strings.TrimSpace(candidateText) == "" {
		return nil, fmt.Errorf("candidate text is required")
	}
	if strings.TrimSpace(opportunityText) == "" {
		return nil, fmt.Errorf("opportunity text is required")
	}

	prompt := buildPrompt(candidateText, opportunityText)

	s.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseAssessment(raw)
	if err != nil {
		return nil, err
	}

	assessment.Raw = raw
	return assessment, nil
}

func buildPrompt(candidateText, opportunityText string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job description:\n{{JOB_TEXT}}\n\nResume:\n{{RESUME_TEXT}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{JOB_TEXT}}", opportunityText)
	prompt = strings.ReplaceAll(prompt, "{{RESUME_TEXT}}", candidateText)
	return prompt
}

func parseAssessment(raw string) (*ai.Assessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse oracle response: %w", err)
	}

	for _, field := range requiredFields {
		if _, ok := data[field]; !ok {
			return nil, fmt.Errorf("oracle response missing required field %q", field)
		}
	}
	if _, ok := data["education_match"]; !ok {
		data["education_match"] = defaultEducationMatch
	}

	for _, field := range integerFields {
		n, err := coerceInt(data[field])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		if n < 0 || n > 100 {
			return nil, fmt.Errorf("field %q: value %d outside [0,100]", field, n)
		}
		data[field] = n
	}

	var out ai.Assessment
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &out})
	if err != nil {
		return nil, fmt.Errorf("build response decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}

	return &out, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("non-integer score %v", val)
		}
		return int(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, fmt.Errorf("non-integer score %v", val)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("score has unexpected type %T", v)
	}
}
