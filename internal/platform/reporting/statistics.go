// Package reporting renders caregiver workload statistics as an .xlsx
// workbook with a per-caregiver sheet and a summary sheet.
package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SheetWorkload = "Auslastung"
	SheetSummary  = "Zusammenfassung"
)

// WorkloadHeader is the header row of the workload sheet.
var WorkloadHeader = []string{
	"Mitarbeiter ID",
	"Benutzername",
	"Name",
	"Zugewiesene Patienten",
	"Freie Plätze",
	"Auslastung %",
}

// WorkloadRow is one caregiver line.
type WorkloadRow struct {
	MitarbeiterID string
	Username      string
	Name          string
	Assigned      int
	Remaining     int
}

// Summary holds the totals printed on the summary sheet.
type Summary struct {
	Capacity           int
	Caregivers         int
	ActiveAssignments  int
	UnassignedPatients int
	TotalCapacity      int
	RemainingCapacity  int
}

// StatisticsReport is the input of ExportStatistics.
type StatisticsReport struct {
	GeneratedAt time.Time
	Rows        []WorkloadRow
	Summary     Summary
}

// ExportStatistics writes the report into a new workbook and returns its bytes.
func ExportStatistics(report StatisticsReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetWorkload)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range WorkloadHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetWorkload, cell, header); err != nil {
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetWorkload, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("set header style: %w", err)
		}
	}

	capacity := report.Summary.Capacity
	for i, row := range report.Rows {
		load := 0.0
		if capacity > 0 {
			load = float64(row.Assigned) * 100 / float64(capacity)
		}
		values := []interface{}{row.MitarbeiterID, row.Username, row.Name, row.Assigned, row.Remaining, load}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(SheetWorkload, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetWorkload, "A", "A", 38); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetWorkload, "B", "F", 20); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	s := report.Summary
	summary := [][]interface{}{
		{"Erstellt", report.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Kapazität je Mitarbeiter", s.Capacity},
		{"Mitarbeiter", s.Caregivers},
		{"Aktive Zuweisungen", s.ActiveAssignments},
		{"Nicht zugewiesene Patienten", s.UnassignedPatients},
		{"Gesamtkapazität", s.TotalCapacity},
		{"Freie Kapazität", s.RemainingCapacity},
	}
	for i, line := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &line); err != nil {
			return nil, fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
