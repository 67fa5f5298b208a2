package llm

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aslab/autoscore/internal/domain/model"
)

// studentIDPattern matches institution student ids: a short letter prefix
// followed by a fixed-length digit run (e.g. "L0122045", "IF2110234"). The
// mandatory letter prefix is what keeps date-like numeric runs such as
// "20260101" from being mistaken for an id.
var studentIDPattern = regexp.MustCompile(`^[A-Za-z]{1,4}[0-9]{5,12}$`)

// filenameDelimiters split a filename into candidate tokens.
var filenameDelimiters = regexp.MustCompile(`[_\-.\s()\[\]]+`)

// nameStopwords are filename tokens that never belong to a student's name.
var nameStopwords = map[string]bool{
	"laporan":   true,
	"tugas":     true,
	"praktikum": true,
	"modul":     true,
	"report":    true,
	"final":     true,
	"revisi":    true,
	"fix":       true,
	"img":       true,
	"scan":      true,
	"doc":       true,
	"file":      true,
	"copy":      true,
	"draft":     true,
	"kelompok":  true,
	"kelas":     true,
}

var titleCaser = cases.Title(language.Indonesian)

// ResolveIdentity fills sentinel identity fields from the source filename.
// It only augments: a non-sentinel id or name already present in the result
// is never overwritten, and a result with both fields confirmed is returned
// unchanged without looking at the filename at all.
func ResolveIdentity(result model.ScoringResult, sourceFilename string) model.ScoringResult {
	if result.HasIdentity() {
		return result
	}

	tokens := tokenizeFilename(sourceFilename)
	if len(tokens) == 0 {
		return result
	}

	idIdx := -1
	if result.MissingStudentID() {
		for i, tok := range tokens {
			if isStudentIDToken(tok) {
				result.StudentID = strings.ToUpper(tok)
				idIdx = i
				break
			}
		}
	}

	if result.MissingStudentName() {
		if name := recoverName(tokens, idIdx); name != "" {
			result.StudentName = name
		}
	}

	return result
}

func tokenizeFilename(filename string) []string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var tokens []string
	for _, tok := range filenameDelimiters.Split(base, -1) {
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// isStudentIDToken requires the letter-prefix pattern and explicitly rejects
// purely numeric tokens, including 8-digit date-like and 14-digit
// timestamp-like runs from camera filenames.
func isStudentIDToken(tok string) bool {
	if isNumeric(tok) {
		return false
	}
	return studentIDPattern.MatchString(tok)
}

// recoverName collects alphabetic tokens adjacent to the recovered id (or all
// alphabetic tokens when no id was found), skipping stopwords, and joins them
// title-cased. At least one plausible token of two or more letters is
// required.
func recoverName(tokens []string, idIdx int) string {
	var parts []string
	for i, tok := range tokens {
		if i == idIdx {
			continue
		}
		if !isAlphabetic(tok) || len(tok) < 2 {
			continue
		}
		if nameStopwords[strings.ToLower(tok)] {
			continue
		}
		parts = append(parts, titleCaser.String(strings.ToLower(tok)))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}
