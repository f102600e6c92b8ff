package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/BruksfildServices01/erms-api/internal/models"
)

const ServiceReportSheet = "Service Reports"

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ServiceReportRow is one report joined with the labels a reader needs.
type ServiceReportRow struct {
	Report         models.ServiceReport
	RequestNumber  string
	DeviceName     string
	TechnicianName string
}

var serviceReportHeaders = []string{
	"Report ID",
	"Request Number",
	"Device",
	"Technician",
	"Status",
	"Service Date",
	"Service Performed",
	"Parts Used",
	"Result Rating",
	"Test Results",
	"Technician Comments",
}

var serviceReportWidths = []float64{10, 22, 22, 22, 12, 18, 40, 30, 12, 40, 40}

func ServiceReportsXLSX(rows []ServiceReportRow) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(ServiceReportSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for col, header := range serviceReportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(ServiceReportSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(ServiceReportSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("header style %s: %w", cell, err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(ServiceReportSheet, name, name, serviceReportWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("column width: %w", err)
		}
	}

	for i, row := range rows {
		r := row.Report
		values := []any{
			r.ID,
			row.RequestNumber,
			row.DeviceName,
			row.TechnicianName,
			r.Status,
			r.ServiceDate.Format("2006-01-02 15:04"),
			r.ServicePerformed,
			r.PartsUsed,
			r.ResultRating,
			formatTestResults(r.TestResults),
			r.TechnicianComments,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(ServiceReportSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(ServiceReportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTestResults(results []models.TestResult) string {
	parts := make([]string, 0, len(results))
	for _, tr := range results {
		parts = append(parts, tr.Test+": "+tr.Result)
	}
	return strings.Join(parts, "; ")
}
