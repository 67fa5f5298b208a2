package report

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/aslab/autoscore/internal/domain/model"
)

const xlsxSheet = "Hasil Penilaian"

// WriteXLSX renders the report as a spreadsheet with the same rows as the
// CSV artifact, for graders who prefer a ready-to-open workbook.
func (g *Generator) WriteXLSX(job *model.Job, tasks []*model.StudentTask) (string, error) {
	if job == nil {
		return "", errors.New("job is required")
	}

	path, err := g.artifactPath(job.Owner, "xlsx")
	if err != nil {
		return "", err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	idx, err := wb.NewSheet(xlsxSheet)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	wb.SetActiveSheet(idx)
	if err := wb.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("remove default sheet: %w", err)
	}

	if err := writeXLSXRow(wb, 1, reportHeader); err != nil {
		return "", err
	}
	for i, row := range buildRows(tasks) {
		if err := writeXLSXRow(wb, i+2, row); err != nil {
			return "", err
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	g.logger.Info("xlsx report written", "path", path, "rows", len(tasks))
	return path, nil
}

func writeXLSXRow(wb *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("row %d: %w", rowNum, err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := wb.SetSheetRow(xlsxSheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
