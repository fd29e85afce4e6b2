package marksheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("marksheet not found")

	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type (
	Repository interface {
		CreateMarksheet(ctx context.Context, ms Marksheet) (Marksheet, error)
		GetMarksheet(ctx context.Context, studentID, id string) (Marksheet, error)
		// ListMarksheets returns the marksheets of a student, newest test date first.
		ListMarksheets(ctx context.Context, studentID string) ([]Marksheet, error)
		UpdateMarksheet(ctx context.Context, ms Marksheet) (Marksheet, error)
		DeleteMarksheet(ctx context.Context, studentID, id string) error
		DeleteMarksheets(ctx context.Context, studentID string) (int, error)
	}

	// Exporter writes marksheets as a spreadsheet.
	Exporter interface {
		ExportMarksheets(w io.Writer, st student.Student, sheets []Marksheet) error
	}

	Service struct {
		repo     Repository
		students *student.Service
		exporter Exporter
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	students *student.Service,
	exporter Exporter,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		exporter: exporter,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// checkStreamSubjects makes sure the marksheet holds every subject of the student's stream and nothing else.
func checkStreamSubjects(stream string, nm NewMarksheet) error {
	allowed, ok := StreamSubjects[stream]
	if !ok {
		return errors.Errorf("unknown stream %q", stream)
	}

	present := nm.subjects()
	var flds []core.FieldError
	for _, subject := range AllSubjects {
		var inStream bool
		for _, s := range allowed {
			if s == subject {
				inStream = true
				break
			}
		}
		_, given := present[subject]
		switch {
		case inStream && !given:
			flds = append(flds, core.FieldError{Field: subject, Error: fmt.Sprintf("%s is required for the %s stream", subject, stream)})
		case !inStream && given:
			flds = append(flds, core.FieldError{Field: subject, Error: fmt.Sprintf("%s is not examined in the %s stream", subject, stream)})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(core.ErrInvalidData, flds...)
	}
	return nil
}

func (svc *Service) Add(ctx context.Context, rollNumber string, nm NewMarksheet) (Marksheet, error) {
	st, err := svc.students.Get(ctx, rollNumber)
	if err != nil {
		return Marksheet{}, err
	}
	if err := checkStreamSubjects(st.Stream, nm); err != nil {
		return Marksheet{}, err
	}

	now := time.Now().UTC()
	ms := Marksheet{
		ID:         uuid.NewString(),
		StudentID:  st.ID,
		RollNumber: st.RollNumber,
		CreatedAt:  now,
	}
	fill(&ms, nm, now)

	ms, err = svc.repo.CreateMarksheet(ctx, ms)
	if err != nil {
		return Marksheet{}, errors.Wrap(err, "creating marksheet")
	}

	svc.notify(ctx, st, ms)
	return ms, nil
}

func fill(ms *Marksheet, nm NewMarksheet, now time.Time) {
	ms.TestName = nm.TestName
	ms.DateOfTest = nm.DateOfTest
	ms.Physics = nm.Physics
	ms.Chemistry = nm.Chemistry
	ms.Maths = nm.Maths
	ms.Botany = nm.Botany
	ms.Zoology = nm.Zoology
	ms.UpdatedAt = now
	ms.Compute()
}

// notify emails the new result to the student along with their full results report.
func (svc *Service) notify(ctx context.Context, st student.Student, ms Marksheet) {
	if svc.mailSvc == nil || st.Email == "" {
		return
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: st.StudentName, Address: st.Email}},
		Subject: "New result: " + ms.TestName,
		TemplateData: struct {
			Marksheet
			StudentName string
		}{ms, st.StudentName},
		TemplateName: "new_result",
	}

	var report bytes.Buffer
	if err := svc.Export(ctx, st.RollNumber, &report); err != nil {
		svc.logger.Error(fmt.Sprintf("exporting results of %s: %v", st.RollNumber, err), err)
	} else if err := msg.Attach(&report, st.ID+"-results.xlsx", ExportContentType); err != nil {
		svc.logger.Error(fmt.Sprintf("attaching results of %s: %v", st.RollNumber, err), err)
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) List(ctx context.Context, rollNumber string) ([]Marksheet, error) {
	st, err := svc.students.Get(ctx, rollNumber)
	if err != nil {
		return nil, err
	}
	return svc.repo.ListMarksheets(ctx, st.ID)
}

func (svc *Service) Get(ctx context.Context, rollNumber, id string) (Marksheet, error) {
	return svc.repo.GetMarksheet(ctx, student.Key(rollNumber), id)
}

// Update replaces every field of the marksheet with `nm` and recomputes the result.
func (svc *Service) Update(ctx context.Context, rollNumber, id string, nm NewMarksheet) (Marksheet, error) {
	st, err := svc.students.Get(ctx, rollNumber)
	if err != nil {
		return Marksheet{}, err
	}
	ms, err := svc.repo.GetMarksheet(ctx, st.ID, id)
	if err != nil {
		return Marksheet{}, err
	}
	if err := checkStreamSubjects(st.Stream, nm); err != nil {
		return Marksheet{}, err
	}

	fill(&ms, nm, time.Now().UTC())
	return svc.repo.UpdateMarksheet(ctx, ms)
}

func (svc *Service) Delete(ctx context.Context, rollNumber, id string) error {
	return svc.repo.DeleteMarksheet(ctx, student.Key(rollNumber), id)
}

// Export writes every marksheet of the student as a spreadsheet.
func (svc *Service) Export(ctx context.Context, rollNumber string, w io.Writer) error {
	st, err := svc.students.Get(ctx, rollNumber)
	if err != nil {
		return err
	}
	sheets, err := svc.repo.ListMarksheets(ctx, st.ID)
	if err != nil {
		return errors.Wrap(err, "listing marksheets")
	}
	return svc.exporter.ExportMarksheets(w, st, sheets)
}
