package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// OCR-quality labels attached to each student task and surfaced in the report.
const (
	// QualityOK means the extracted text carries usable content.
	QualityOK = "ok"
	// QualityFailed means the text is empty or image-placeholder-only after
	// stripping markup, so the submission is effectively unreadable.
	QualityFailed = "failed"
	// QualityUnknown is the initial label before the heuristic has run.
	QualityUnknown = "unknown"
)

// Converter output wraps images it could not read as placeholder markup.
// These carry no gradeable signal and are stripped before judging quality.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<!--\s*image\s*-->`),
	regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`),
	regexp.MustCompile(`\[BASE64_IMAGE_REMOVED\]`),
}

// Quality is the outcome of the OCR-quality heuristic.
type Quality struct {
	Label  string
	Detail string
}

// Succeeded reports whether the extraction produced usable text.
func (q Quality) Succeeded() bool {
	return q.Label == QualityOK
}

// JudgeQuality classifies extracted text as usable or effectively empty. Text
// dominated by image placeholders with fewer than minSignalWords remaining
// words counts as a failed extraction: the document was likely a scan the
// converter could not OCR.
func JudgeQuality(text string, minSignalWords int) Quality {
	if minSignalWords < 1 {
		minSignalWords = 1
	}

	if strings.TrimSpace(text) == "" {
		return Quality{Label: QualityFailed, Detail: "no text extracted"}
	}

	stripped := text
	placeholders := 0
	for _, re := range placeholderPatterns {
		matches := re.FindAllString(stripped, -1)
		placeholders += len(matches)
		stripped = re.ReplaceAllString(stripped, "")
	}

	words := countSignalWords(stripped)
	if strings.TrimSpace(stripped) == "" {
		return Quality{
			Label:  QualityFailed,
			Detail: fmt.Sprintf("only image placeholders found (%d)", placeholders),
		}
	}
	if placeholders > 0 && words < minSignalWords {
		return Quality{
			Label: QualityFailed,
			Detail: fmt.Sprintf("image-dominated content: %d placeholders, %d words of text",
				placeholders, words),
		}
	}

	return Quality{
		Label:  QualityOK,
		Detail: fmt.Sprintf("%d words extracted", words),
	}
}

// countSignalWords counts whitespace-separated tokens that contain at least
// one letter or digit. Punctuation-only fragments left behind by markup
// stripping do not count as signal.
func countSignalWords(text string) int {
	count := 0
	for _, token := range strings.Fields(text) {
		if strings.ContainsFunc(token, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		}) {
			count++
		}
	}
	return count
}
