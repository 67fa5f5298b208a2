// Package report renders the per-job result artifact graders download.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/aslab/autoscore/internal/domain/model"
)

// UnreadableSentinel is rendered for identity fields that were never
// resolved, typically because the submission could not be read at all.
const UnreadableSentinel = "TIDAK_TERBACA"

// reportHeader is shared by the CSV and XLSX renderings.
var reportHeader = []string{
	"No", "Filename", "NIM", "Nama", "Skor", "Status OCR", "Detail OCR", "Evaluasi",
}

// Generator writes report artifacts into the results directory.
type Generator struct {
	resultsDir string
	logger     *slog.Logger
	now        func() time.Time
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	ResultsDir string
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		resultsDir: opts.ResultsDir,
		logger:     logger.With("component", "report"),
		now:        now,
	}
}

// buildRows produces the report rows in their canonical order: sorted by
// filename (id as a tiebreaker), never by completion order, so regenerating
// a report from the same tasks is byte-identical.
func buildRows(tasks []*model.StudentTask) [][]string {
	sorted := make([]*model.StudentTask, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Filename != sorted[j].Filename {
			return sorted[i].Filename < sorted[j].Filename
		}
		return sorted[i].ID < sorted[j].ID
	})

	rows := make([][]string, 0, len(sorted))
	for i, task := range sorted {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			task.Filename,
			identityOrSentinel(task.StudentID),
			identityOrSentinel(task.StudentName),
			scoreOrEmpty(task.Score),
			task.OCRStatus,
			task.OCRDetail,
			task.Evaluation,
		})
	}
	return rows
}

func identityOrSentinel(v *string) string {
	if v == nil || *v == "" {
		return UnreadableSentinel
	}
	return *v
}

func scoreOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// artifactPath builds the output path as <results>/<owner>_<timestamp>.<ext>
// and ensures the results directory exists.
func (g *Generator) artifactPath(owner, ext string) (string, error) {
	if err := os.MkdirAll(g.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.%s", owner, g.now().Format("20060102_150405"), ext)
	return filepath.Join(g.resultsDir, name), nil
}
