package spreadsheet

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/student"
)

// StudentColumns is the column order of a student import sheet. The first row holds the headers.
var StudentColumns = []string{
	"Roll Number", "Student Name", "Parents Name", "Date of Birth", "Email", "Class", "Stream", "Batch", "Password",
}

var ErrNoSheet = errors.New("spreadsheet does not contain any sheets")

// ReadStudents parses the first sheet of an xlsx workbook into new students.
// Rows keep their position: row N of the sheet is element N-2 of the result.
func ReadStudents(r io.Reader) ([]student.NewStudent, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening spreadsheet")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "reading rows of sheet %s", sheet)
	}
	if len(rows) < 2 {
		return []student.NewStudent{}, nil
	}

	students := make([]student.NewStudent, 0, len(rows)-1)
	for _, row := range rows[1:] { // skip headers
		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		class, _ := strconv.Atoi(cell(5))
		students = append(students, student.NewStudent{
			RollNumber:  cell(0),
			StudentName: cell(1),
			ParentsName: cell(2),
			DateOfBirth: dateCell(cell(3)),
			Email:       cell(4),
			Class:       class,
			Stream:      cell(6),
			Batch:       cell(7),
			Password:    cell(8),
		})
	}
	return students, nil
}

// dateCell converts Excel date serials to YYYY-MM-DD. Text is returned as is.
func dateCell(s string) string {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return s
	}
	return t.Format(core.DateLayout)
}
