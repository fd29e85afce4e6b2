package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/student"
)

func registerMarksheetAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	mg := g.Group("/students/:roll/marksheets", jwt, adminMiddleware())
	mg.GET("", s.listMarksheets)
	mg.POST("", s.createMarksheet)
	mg.GET("/export", s.exportMarksheets)

	// detail endpoints
	mg.GET("/:id", s.retrieveMarksheet)
	mg.PUT("/:id", s.updateMarksheet)
	mg.DELETE("/:id", s.destroyMarksheet)
}

// Handlers

func (s *Server) bindMarksheet(ctx echo.Context) (marksheet.NewMarksheet, error) {
	var data marksheet.NewMarksheet
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to NewMarksheet")
	}
	return data, data.Validate(s.deps.Validate)
}

func (s *Server) createMarksheet(ctx echo.Context) error {
	data, err := s.bindMarksheet(ctx)
	if err != nil {
		return err
	}

	ms, err := s.deps.MarksheetSvc.Add(ctx.Request().Context(), ctx.Param("roll"), data)
	if err != nil {
		return errors.Wrap(err, "adding marksheet")
	}
	return ctx.JSON(http.StatusCreated, ActionResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully added marksheet %s.", ms.TestName),
		Data:    ms,
	})
}

func (s *Server) listMarksheets(ctx echo.Context) error {
	sheets, err := s.deps.MarksheetSvc.List(ctx.Request().Context(), ctx.Param("roll"))
	if err != nil {
		return errors.Wrap(err, "listing marksheets")
	}
	if sheets == nil {
		sheets = []marksheet.Marksheet{}
	}
	return ctx.JSON(http.StatusOK, sheets)
}

func (s *Server) exportMarksheets(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := s.deps.MarksheetSvc.Export(ctx.Request().Context(), ctx.Param("roll"), &buf); err != nil {
		return errors.Wrap(err, "exporting marksheets")
	}
	filename := student.Key(ctx.Param("roll")) + "-results.xlsx"
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, marksheet.ExportContentType, buf.Bytes())
}

func (s *Server) retrieveMarksheet(ctx echo.Context) error {
	ms, err := s.deps.MarksheetSvc.Get(ctx.Request().Context(), ctx.Param("roll"), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting marksheet")
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (s *Server) updateMarksheet(ctx echo.Context) error {
	data, err := s.bindMarksheet(ctx)
	if err != nil {
		return err
	}

	ms, err := s.deps.MarksheetSvc.Update(ctx.Request().Context(), ctx.Param("roll"), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating marksheet")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully updated marksheet %s.", ms.TestName),
		Data:    ms,
	})
}

func (s *Server) destroyMarksheet(ctx echo.Context) error {
	if err := s.deps.MarksheetSvc.Delete(ctx.Request().Context(), ctx.Param("roll"), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting marksheet")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{Success: true, Message: "Successfully deleted marksheet."})
}
