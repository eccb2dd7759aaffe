package dashboard

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Alumnado"

var exportHeader = []string{"Estudiante", "Email", "Completados", "Progreso (%)", "Nota media", "Última conexión"}

// ExportCSV writes the classroom table as CSV, one row per learner.
func (d *Dashboard) ExportCSV(ctx context.Context, w io.Writer) error {
	rows, err := d.Classroom(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(exportRecord(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ExportXLSX writes the classroom table as an Excel workbook.
func (d *Dashboard) ExportXLSX(ctx context.Context, w io.Writer) (err error) {
	rows, err := d.Classroom(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		values := []any{safeCell(r.Name), safeCell(r.Email), r.CompletedCount, r.CompletionRate, r.AverageScore, lastActive(r)}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func exportRecord(r LearnerReport) []string {
	return []string{
		safeCell(r.Name),
		safeCell(r.Email),
		strconv.Itoa(r.CompletedCount) + "/" + strconv.Itoa(r.TotalModules),
		strconv.Itoa(r.CompletionRate),
		strconv.Itoa(r.AverageScore),
		lastActive(r),
	}
}

func lastActive(r LearnerReport) string {
	if r.LastActive == nil {
		return ""
	}
	return r.LastActive.UTC().Format(time.RFC3339)
}

// safeCell prefixes a quote to user-supplied text that a spreadsheet would
// evaluate as a formula.
func safeCell(s string) string {
	if s != "" && strings.ContainsAny(s[:1], "=+-@\t\r") {
		return "'" + s
	}
	return s
}
