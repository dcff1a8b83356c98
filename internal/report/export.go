package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// RosterDataset lays out the roster of rep, one row per student.
func RosterDataset(rep CourseReport) Dataset {
	ds := Dataset{Headers: []string{"Student", "Attended", "Early", "On Time", "Late", "Sessions", "Percent"}}
	for _, s := range rep.Students {
		ds.Rows = append(ds.Rows, map[string]string{
			"Student":  s.StudentID,
			"Attended": strconv.Itoa(s.Stats.Total),
			"Early":    strconv.Itoa(s.Stats.Early),
			"On Time":  strconv.Itoa(s.Stats.OnTime),
			"Late":     strconv.Itoa(s.Stats.Late),
			"Sessions": strconv.Itoa(rep.Sessions),
			"Percent":  strconv.FormatFloat(s.Percent, 'f', 1, 64),
		})
	}
	return ds
}

// RecordsDataset lays out the individual records of rep.
func RecordsDataset(rep CourseReport) Dataset {
	ds := Dataset{Headers: []string{"Date", "Student", "Time", "Status"}}
	for _, r := range rep.Records {
		ds.Rows = append(ds.Rows, map[string]string{
			"Date":    r.SessionDate,
			"Student": r.StudentID,
			"Time":    r.Timestamp.Format("15:04:05"),
			"Status":  string(r.Status),
		})
	}
	return ds
}

// RenderCSV produces CSV encoded bytes for the dataset.
func RenderCSV(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF renders the course report: a summary line, the roster table and
// the record table.
func RenderPDF(rep CourseReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	title := rep.Course.Name
	if rep.Course.Code != "" {
		title = rep.Course.Code + " " + title
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s to %s, %d sessions", rep.From, rep.To, rep.Sessions), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total %d  Early %d  On time %d  Late %d",
		rep.Stats.Total, rep.Stats.Early, rep.Stats.OnTime, rep.Stats.Late), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	table(pdf, RosterDataset(rep))
	pdf.Ln(8)
	table(pdf, RecordsDataset(rep))

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func table(pdf *gofpdf.Fpdf, data Dataset) {
	colWidth := 190.0 / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 10)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
