package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/aslab/autoscore/internal/domain/model"
)

// utf8BOM makes spreadsheet applications detect the encoding correctly;
// evaluations are Indonesian text and graders open these files in Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV renders the canonical report artifact and returns its path.
func (g *Generator) WriteCSV(job *model.Job, tasks []*model.StudentTask) (string, error) {
	if job == nil {
		return "", errors.New("job is required")
	}

	path, err := g.artifactPath(job.Owner, "csv")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return "", fmt.Errorf("write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, row := range buildRows(tasks) {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}

	g.logger.Info("report written", "path", path, "rows", len(tasks))
	return path, nil
}
