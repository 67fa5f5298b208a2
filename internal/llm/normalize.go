package llm

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/aslab/autoscore/internal/domain/model"
)

// ParseFailureEvaluation is the fixed evaluation text recorded when the model
// response could not be processed at all.
const ParseFailureEvaluation = "Gagal memproses respons LLM"

// NormalizeParams carries the scoring parameters that shape normalization.
type NormalizeParams struct {
	ScoreMin         int
	ScoreMax         int
	EnableEvaluation bool
	MaxWords         int
}

// rawScoringResponse tolerates loose typing in model output: identity fields
// may come back as numbers, and score as a number or numeric string.
type rawScoringResponse struct {
	Nim         any    `json:"nim"`
	StudentName any    `json:"student_name"`
	Score       any    `json:"score"`
	Evaluation  string `json:"evaluation"`
}

// ParseResponse normalizes raw model output into a ScoringResult. A strict
// JSON parse is tried first; on failure, the largest balanced brace fragment
// in the text is re-parsed, and the result only counts as usable when a score
// could be recovered from it.
func ParseResponse(raw string, p NormalizeParams) model.ScoringResult {
	var parsed rawScoringResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return extractFallback(raw, p)
	}
	return normalizeParsed(parsed, p)
}

func normalizeParsed(parsed rawScoringResponse, p NormalizeParams) model.ScoringResult {
	return model.ScoringResult{
		StudentID:   stringifyIdentity(parsed.Nim),
		StudentName: stringifyIdentity(parsed.StudentName),
		Score:       normalizeScore(parsed.Score, p.ScoreMin, p.ScoreMax),
		Evaluation:  normalizeEvaluation(parsed.Evaluation, p),
		Error:       false,
	}
}

// extractFallback handles responses that are not valid JSON as a whole, such
// as model chatter wrapped around a JSON object or a ```json fence. It scans
// for the largest balanced brace fragment and re-applies the same rules to
// it. Without a recoverable score the whole response counts as a failure.
func extractFallback(raw string, p NormalizeParams) model.ScoringResult {
	failed := model.ScoringResult{
		StudentID:   model.IdentityNotFound,
		StudentName: model.IdentityNotFound,
		Score:       nil,
		Evaluation:  ParseFailureEvaluation,
		Error:       true,
	}

	fragment := largestBraceFragment(raw)
	if fragment == "" {
		return failed
	}

	var parsed rawScoringResponse
	if err := json.Unmarshal([]byte(fragment), &parsed); err != nil {
		return failed
	}

	score := normalizeScore(parsed.Score, p.ScoreMin, p.ScoreMax)
	if score == nil {
		return failed
	}

	result := normalizeParsed(parsed, p)
	if result.StudentID == "" {
		result.StudentID = model.IdentityNotFound
	}
	if result.StudentName == "" {
		result.StudentName = model.IdentityNotFound
	}
	return result
}

// largestBraceFragment returns the longest balanced {...} substring of text,
// or "" when none exists. Braces inside JSON strings are rare in model output
// and at worst cause the fragment parse to fail, which the caller treats the
// same as no fragment.
func largestBraceFragment(text string) string {
	best := ""
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		depth := 0
		for j := i; j < len(text); j++ {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					if j+1-i > len(best) {
						best = text[i : j+1]
					}
				}
			}
			if depth == 0 && text[j] == '}' {
				break
			}
		}
	}
	return best
}

// normalizeScore coerces the raw score to an integer (tolerating floats and
// numeric strings) and clamps it into [lo, hi]. Anything non-numeric yields
// nil rather than failing the parse.
func normalizeScore(raw any, lo, hi int) *int {
	var f float64
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	score := int(f)
	if score < lo {
		score = lo
	}
	if score > hi {
		score = hi
	}
	return &score
}

// normalizeEvaluation forces empty text when evaluation is disabled and
// otherwise truncates to MaxWords words with an ellipsis marker.
func normalizeEvaluation(text string, p NormalizeParams) string {
	if !p.EnableEvaluation {
		return ""
	}
	maxWords := p.MaxWords
	if maxWords < 1 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func stringifyIdentity(v any) string {
	switch s := v.(type) {
	case nil:
		return model.IdentityNotFound
	case string:
		if strings.TrimSpace(s) == "" {
			return model.IdentityNotFound
		}
		return s
	case float64:
		// Integral identity numbers should not render as "1.23457e+07".
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		raw, err := json.Marshal(s)
		if err != nil {
			return model.IdentityNotFound
		}
		return string(raw)
	}
}
