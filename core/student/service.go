package student

import (
	"context"
	"fmt"
	"net/mail"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
)

var (
	// errors
	ErrNotFound         = errors.New("student not found")
	ErrRollNumberExists = errors.New("a student with this roll number already exists")
	ErrEmailExists      = errors.New("a student with this email already exists")
)

type (
	Repository interface {
		// CreateStudent fails with ErrRollNumberExists when a student with the same key exists.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudent(ctx context.Context, key string) (Student, error)
		// GetStudentByEmail returns the first student registered with `email`.
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		QueryStudents(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudent(ctx context.Context, key string) error
	}

	// MarksheetRemover removes every marksheet of a student.
	MarksheetRemover interface {
		DeleteMarksheets(ctx context.Context, key string) (int, error)
	}

	Service struct {
		repo     Repository
		accounts *account.Service
		marks    MarksheetRemover
		mailSvc  core.EmailService
		logger   core.Logger
	}

	// DeleteResult describes what Delete removed.
	DeleteResult struct {
		Student        Student
		AccountDeleted bool
		Marksheets     int
	}
)

// Message describes the outcome of Delete.
func (res DeleteResult) Message() string {
	switch {
	case res.Student.UID == "":
		return "Successfully deleted student."
	case !res.AccountDeleted:
		return "Student record deleted. The associated user account was not found."
	}
	return "Successfully deleted student and their account."
}

func NewService(
	repo Repository,
	accounts *account.Service,
	marks MarksheetRemover,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		marks:    marks,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

func rollNumberExistsError(rollNumber string) error {
	msg := fmt.Sprintf("A student with Roll Number %s already exists.", rollNumber)
	return core.NewValidationError(errors.New(msg), core.FieldError{Field: "roll_number", Error: ErrRollNumberExists.Error()})
}

func (svc *Service) checkUniqueness(ctx context.Context, rollNumber, email string) error {
	if rollNumber != "" {
		if _, err := svc.repo.GetStudent(ctx, Key(rollNumber)); err == nil {
			return rollNumberExistsError(rollNumber)
		} else if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "checking roll number")
		}
	}
	if _, err := svc.repo.GetStudentByEmail(ctx, email); err == nil {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking email")
	}
	return nil
}

// Add creates the student's account then their record.
// When the record cannot be created, the freshly created account is deleted (best effort).
// If `ns` references an existing account (UID), only the record is created.
func (svc *Service) Add(ctx context.Context, ns NewStudent) (Student, error) {
	if ns.UID != "" {
		if ns.Password != "" {
			return Student{}, core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdWithUIDText})
		}
		return svc.Save(ctx, ns)
	}
	if err := svc.checkUniqueness(ctx, ns.RollNumber, ns.Email); err != nil {
		return Student{}, err
	}

	acc, err := svc.accounts.Create(ctx, account.NewAccount{
		Email:       ns.Email,
		Password:    ns.Password,
		DisplayName: ns.StudentName,
		Roles:       []string{account.RoleStudent},
	})
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student account")
	}

	ns.UID = acc.UID
	st, err := svc.create(ctx, ns)
	if err != nil {
		svc.rollbackAccount(ctx, acc, err)
		return Student{}, err
	}

	svc.sendWelcomeMail(st)
	return st, nil
}

func (svc *Service) rollbackAccount(ctx context.Context, acc account.Account, cause error) {
	if err := svc.accounts.Delete(ctx, acc.UID); err != nil {
		svc.logger.Error(
			fmt.Sprintf("rolling back account %s after failed student creation: %v", acc.UID, err),
			errors.Wrap(cause, "creating student record"), err, acc,
		)
		return
	}
	svc.logger.Warn(fmt.Sprintf("account %s rolled back after failed student creation", acc.UID), cause)
}

// Save creates the student record only.
// A UID given in `ns` must reference an existing account.
func (svc *Service) Save(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkUniqueness(ctx, ns.RollNumber, ns.Email); err != nil {
		return Student{}, err
	}
	if ns.UID != "" {
		if _, err := svc.accounts.Get(ctx, ns.UID); err != nil {
			if errors.Cause(err) == account.ErrNotFound {
				return Student{}, core.NewValidationError(account.ErrNotFound, core.FieldError{Field: "uid", Error: account.ErrNotFound.Error()})
			}
			return Student{}, errors.Wrap(err, "finding account")
		}
	}
	return svc.create(ctx, ns)
}

func (svc *Service) create(ctx context.Context, ns NewStudent) (Student, error) {
	st := Student{
		ID:          Key(ns.RollNumber),
		RollNumber:  ns.RollNumber,
		StudentName: ns.StudentName,
		ParentsName: ns.ParentsName,
		DateOfBirth: ns.DateOfBirth,
		Email:       ns.Email,
		Class:       ns.Class,
		Stream:      ns.Stream,
		Batch:       ns.Batch,
		UID:         ns.UID,
	}
	st, err := svc.repo.CreateStudent(ctx, st)
	if err != nil {
		if errors.Cause(err) == ErrRollNumberExists {
			return Student{}, rollNumberExistsError(ns.RollNumber)
		}
		return Student{}, errors.Wrap(err, "creating student record")
	}
	return st, nil
}

func (svc *Service) sendWelcomeMail(st Student) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: st.StudentName, Address: st.Email}},
		Subject:      "Your results account",
		TemplateName: "welcome",
		TemplateData: st,
	})
}

func (svc *Service) Get(ctx context.Context, rollNumber string) (Student, error) {
	return svc.repo.GetStudent(ctx, Key(rollNumber))
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Student, error) {
	return svc.repo.GetStudentByEmail(ctx, core.CleanString(email, true /* lower */))
}

// GetByAccount returns the student linked to `acc`.
// Records created before the account link are matched by email.
func (svc *Service) GetByAccount(ctx context.Context, acc account.Account) (Student, error) {
	st, err := svc.GetByEmail(ctx, acc.Email)
	if err != nil {
		return Student{}, err
	}
	if st.UID != "" && st.UID != acc.UID {
		return Student{}, ErrNotFound
	}
	return st, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, CleanOrderings(orderings))
}

// Update modifies the student identified by `rollNumber`.
// Email and name changes are propagated to the linked account, and reverted when the record
// cannot be saved.
func (svc *Service) Update(ctx context.Context, rollNumber string, us UpdateStudent) (Student, error) {
	st, err := svc.Get(ctx, rollNumber)
	if err != nil {
		return Student{}, err
	}
	orig := st
	var accUpdated bool

	if us.Email != st.Email {
		if err := svc.checkUniqueness(ctx, "", us.Email); err != nil {
			return Student{}, err
		}
	}
	if st.UID != "" && (us.Email != st.Email || us.StudentName != st.StudentName) {
		ua := account.UpdateAccount{DisplayName: us.StudentName}
		if us.Email != st.Email {
			ua.Email = us.Email
		}
		if _, err := svc.accounts.Update(ctx, st.UID, ua); err != nil {
			if errors.Cause(err) != account.ErrNotFound {
				return Student{}, errors.Wrap(err, "updating student account")
			}
			svc.logger.Warn(fmt.Sprintf("account %s of student %s not found", st.UID, st.RollNumber))
		} else {
			accUpdated = true
		}
	}

	st.StudentName = us.StudentName
	st.ParentsName = us.ParentsName
	st.DateOfBirth = us.DateOfBirth
	st.Email = us.Email
	st.Class = us.Class
	st.Stream = us.Stream
	st.Batch = us.Batch
	st, err = svc.repo.UpdateStudent(ctx, st)
	if err != nil {
		if accUpdated {
			svc.revertAccount(ctx, orig, err)
		}
		return Student{}, errors.Wrap(err, "updating student record")
	}
	return st, nil
}

// revertAccount restores the account name and email of `orig` after a failed record update.
func (svc *Service) revertAccount(ctx context.Context, orig Student, cause error) {
	ua := account.UpdateAccount{Email: orig.Email, DisplayName: orig.StudentName}
	if _, err := svc.accounts.Update(ctx, orig.UID, ua); err != nil {
		svc.logger.Error(
			fmt.Sprintf("reverting account %s after failed student update: %v", orig.UID, err),
			errors.Wrap(cause, "updating student record"), err,
		)
		return
	}
	svc.logger.Warn(fmt.Sprintf("account %s reverted after failed student update", orig.UID), cause)
}

// Delete deletes the student record, their marksheets then their account.
// A missing account does not fail the deletion.
func (svc *Service) Delete(ctx context.Context, rollNumber string) (DeleteResult, error) {
	st, err := svc.Get(ctx, rollNumber)
	if err != nil {
		return DeleteResult{}, err
	}
	res := DeleteResult{Student: st}

	if err := svc.repo.DeleteStudent(ctx, st.ID); err != nil {
		return DeleteResult{}, errors.Wrap(err, "deleting student record")
	}
	if svc.marks != nil {
		if res.Marksheets, err = svc.marks.DeleteMarksheets(ctx, st.ID); err != nil {
			svc.logger.Error(fmt.Sprintf("deleting marksheets of student %s: %v", st.RollNumber, err), err)
		}
	}

	if st.UID == "" {
		return res, nil
	}
	if err := svc.accounts.Delete(ctx, st.UID); err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return res, nil
		}
		return res, errors.Wrap(err, "deleting student account")
	}
	res.AccountDeleted = true
	return res, nil
}

type (
	ImportFailure struct {
		Row        int               `json:"row"`
		RollNumber string            `json:"roll_number"`
		Error      string            `json:"error"`
		Fields     map[string]string `json:"fields,omitempty"`
	}

	ImportReport struct {
		Created  []Student       `json:"created"`
		Failures []ImportFailure `json:"failures"`
	}
)

// Import validates then adds every row of `rows`, collecting failures.
// Row numbers start at 2 (the first row of a sheet holds the headers).
func (svc *Service) Import(ctx context.Context, rows []NewStudent, validate *validator.Validate, translator ut.Translator) ImportReport {
	report := ImportReport{Created: []Student{}, Failures: []ImportFailure{}}
	for i, ns := range rows {
		row := i + 2
		fail := func(err error) {
			f := ImportFailure{Row: row, RollNumber: ns.RollNumber, Error: err.Error()}
			switch cause := errors.Cause(err).(type) {
			case validator.ValidationErrors:
				f.Error = core.ErrInvalidData.Error()
				f.Fields = core.TranslateErrors(cause, translator)
			case *core.ValidationError:
				f.Fields = cause.FieldsMap()
			}
			report.Failures = append(report.Failures, f)
		}

		if err := ns.Validate(validate); err != nil {
			fail(err)
			continue
		}
		st, err := svc.Add(ctx, ns)
		if err != nil {
			fail(err)
			continue
		}
		report.Created = append(report.Created, st)
	}
	return report
}
