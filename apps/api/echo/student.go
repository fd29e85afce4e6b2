package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core/student"
	"github.com/phoenixacademy/resultsportal/services/spreadsheet"
)

var errEmailRequired = echo.NewHTTPError(http.StatusBadRequest, "Email is required.")

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	sg := g.Group("/students", jwt, adminMiddleware())
	sg.GET("", s.queryStudents)
	sg.POST("", s.createStudent)
	sg.POST("/import", s.importStudents)
	sg.GET("/lookup", s.lookupStudent)

	// detail endpoints
	sg.GET("/:roll", s.retrieveStudent)
	sg.PUT("/:roll", s.updateStudent)
	sg.DELETE("/:roll", s.destroyStudent)
}

// Handlers

func (s *Server) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	st, err := s.deps.StudentSvc.Add(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, ActionResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully added student %s.", st.StudentName),
		Data:    st,
	})
}

func (s *Server) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a spreadsheet must be uploaded in the \"file\" field")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded spreadsheet")
	}
	defer func() { _ = f.Close() }()

	rows, err := spreadsheet.ReadStudents(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "the uploaded file is not a valid xlsx spreadsheet").SetInternal(err)
	}

	report := s.deps.StudentSvc.Import(ctx.Request().Context(), rows, s.deps.Validate, s.deps.Translator)
	return ctx.JSON(http.StatusOK, ActionResponse{
		Success: len(report.Failures) == 0,
		Message: fmt.Sprintf("Imported %d of %d student(s).", len(report.Created), len(rows)),
		Data:    report,
	})
}

func (s *Server) queryStudents(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := s.deps.StudentSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

// lookupStudent finds the student registered with `?email=`. `data` is null when none is.
func (s *Server) lookupStudent(ctx echo.Context) error {
	email := ctx.QueryParam("email")
	if email == "" {
		return errEmailRequired
	}

	st, err := s.deps.StudentSvc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return ctx.JSON(http.StatusOK, ActionResponse{Success: true})
		}
		return errors.Wrap(err, "finding student by email")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{Success: true, Data: st})
}

func (s *Server) retrieveStudent(ctx echo.Context) error {
	st, err := s.deps.StudentSvc.Get(ctx.Request().Context(), ctx.Param("roll"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *Server) updateStudent(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	st, err := s.deps.StudentSvc.Update(ctx.Request().Context(), ctx.Param("roll"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully updated student %s.", st.StudentName),
		Data:    st,
	})
}

func (s *Server) destroyStudent(ctx echo.Context) error {
	res, err := s.deps.StudentSvc.Delete(ctx.Request().Context(), ctx.Param("roll"))
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{Success: true, Message: res.Message()})
}
