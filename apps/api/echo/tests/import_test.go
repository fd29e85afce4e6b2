package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/student"
	testutil "github.com/phoenixacademy/resultsportal/tests"
)

type importResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    student.ImportReport `json:"data"`
}

func newUploadRequest(t *testing.T, path, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func studentsWorkbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Roll Number", "Student Name", "Parents Name", "Date of Birth", "Email", "Class", "Stream", "Batch", "Password"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func Test_studentApi_import(t *testing.T) {
	srv, env := setup(t)

	admin := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)
	token := getToken(t, srv, admin)
	testutil.CreateStudent(t, env, "PSA-001", "Asha Patil", "asha@phoenix.test", student.StreamJEE)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "file required", method: http.MethodPost, path: "/v1/students/import", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Message: `a spreadsheet must be uploaded in the "file" field`}),
		},
	})

	t.Run("not a spreadsheet", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/students/import", token, "students.xlsx", []byte("roll,name"))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, string(marchallObj(t, httpErr{Message: "the uploaded file is not a valid xlsx spreadsheet"})), rec.Body.String())
	})

	t.Run("report", func(t *testing.T) {
		content := studentsWorkbook(t,
			[]interface{}{"PSA-002", "Rohan Kale", "Sunita Kale", "2007-02-11", "rohan@phoenix.test", 11, "NEET", "2024-2026", testutil.DefaultPassword},
			[]interface{}{"PSA-001", "Asha Again", "Someone", "2007-02-11", "asha2@phoenix.test", 11, "JEE", "2024-2026", testutil.DefaultPassword},
		)
		req, rec := newUploadRequest(t, "/v1/students/import", token, "students.xlsx", content)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp importResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "Imported 1 of 2 student(s).", resp.Message)
		require.Len(t, resp.Data.Created, 1)
		assert.Equal(t, "PSA-002", resp.Data.Created[0].RollNumber)
		require.Len(t, resp.Data.Failures, 1)
		assert.Equal(t, 3, resp.Data.Failures[0].Row)
		assert.Equal(t, "A student with Roll Number PSA-001 already exists.", resp.Data.Failures[0].Error)
	})
}
