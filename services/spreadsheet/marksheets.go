package spreadsheet

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/student"
)

const resultsSheet = "Results"

var marksheetColumns = []string{
	"Test Name", "Date of Test", "Physics", "Chemistry", "Maths", "Botany", "Zoology", "Total", "Total Max", "Result",
}

// Exporter writes marksheets as xlsx workbooks.
type Exporter struct{}

var _ marksheet.Exporter = Exporter{}

func NewExporter() Exporter { return Exporter{} }

// ExportMarksheets writes one row per marksheet below a student summary and the column headers.
// Subjects are written as "marks/max"; subjects absent from a marksheet are left empty.
func (Exporter) ExportMarksheets(w io.Writer, st student.Student, sheets []marksheet.Marksheet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return errors.Wrap(err, "naming results sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}

	summary := []interface{}{st.RollNumber, st.StudentName, fmt.Sprintf("Class %d", st.Class), st.Stream, st.Batch}
	if err = f.SetSheetRow(resultsSheet, "A1", &summary); err != nil {
		return errors.Wrap(err, "writing summary")
	}

	headers := make([]interface{}, len(marksheetColumns))
	for i, h := range marksheetColumns {
		headers[i] = h
	}
	if err = f.SetSheetRow(resultsSheet, "A3", &headers); err != nil {
		return errors.Wrap(err, "writing headers")
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 3)
	if err = f.SetCellStyle(resultsSheet, "A3", lastHeader, bold); err != nil {
		return errors.Wrap(err, "styling headers")
	}

	for i, ms := range sheets {
		row := []interface{}{ms.TestName, ms.DateOfTest}
		for _, score := range []*marksheet.SubjectScore{ms.Physics, ms.Chemistry, ms.Maths, ms.Botany, ms.Zoology} {
			if score == nil {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprintf("%d/%d", score.Marks, score.MaxMarks))
		}
		row = append(row, ms.Total, ms.TotalMax, ms.Result)

		cell, _ := excelize.CoordinatesToCellName(1, i+4)
		if err = f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing marksheet %s", ms.ID)
		}
	}

	if err = f.SetColWidth(resultsSheet, "A", "A", 30); err != nil {
		return errors.Wrap(err, "sizing columns")
	}
	_, err = f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}
