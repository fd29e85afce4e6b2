package security

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/student"
)

const StatusFailed = "failed"

var (
	// errors
	ErrLockedOut = errors.New("too many failed login attempts, try again later")

	DefaultListLimit = 100
)

type LoginAttempt struct {
	ID          string    `json:"id" firestore:"-" bson:"_id"`
	Email       string    `json:"email" firestore:"email" bson:"email"`
	Timestamp   time.Time `json:"timestamp" firestore:"timestamp" bson:"timestamp"` // UTC
	Status      string    `json:"status" firestore:"status" bson:"status"`
	StudentName string    `json:"student_name,omitempty" firestore:"studentName,omitempty" bson:"student_name,omitempty"`
}

type (
	Repository interface {
		CreateLoginAttempt(ctx context.Context, la LoginAttempt) (LoginAttempt, error)
		// ListLoginAttempts returns the latest `limit` attempts, newest first.
		ListLoginAttempts(ctx context.Context, limit int) ([]LoginAttempt, error)
		// ClearLoginAttempts deletes every attempt and returns how many were deleted.
		ClearLoginAttempts(ctx context.Context) (int, error)
	}

	// Throttle counts failures per key over a fixed window.
	Throttle interface {
		// Hit records a failure for `key` and returns the failure count of the current window.
		Hit(ctx context.Context, key string) (int, error)
		// Count returns the failure count of the current window.
		Count(ctx context.Context, key string) (int, error)
		Reset(ctx context.Context, key string) error
	}

	StudentFinder interface {
		GetByEmail(ctx context.Context, email string) (student.Student, error)
	}

	Service struct {
		repo        Repository
		throttle    Throttle
		students    StudentFinder
		maxAttempts int
		logger      core.Logger
	}
)

func NewService(repo Repository, throttle Throttle, students StudentFinder, maxAttempts int, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		throttle:    throttle,
		students:    students,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// throttleKey returns the throttle key of `email`, or "" when there is no email to throttle on.
func throttleKey(email string) string {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return ""
	}
	return "login:" + email
}

// CheckAllowed returns ErrLockedOut when `email` failed to log in too many times.
// Throttle failures are logged and never lock anybody out. An empty email is never locked out.
func (svc *Service) CheckAllowed(ctx context.Context, email string) error {
	key := throttleKey(email)
	if svc.throttle == nil || svc.maxAttempts <= 0 || key == "" {
		return nil
	}
	count, err := svc.throttle.Count(ctx, key)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("reading login throttle: %v", err), err)
		return nil
	}
	if count >= svc.maxAttempts {
		return ErrLockedOut
	}
	return nil
}

// RecordFailure logs a failed login of `email`.
// The name of the student registered with that email is attached when found.
// Failures without an email (eg: a rejected ID token) are logged but not throttled.
func (svc *Service) RecordFailure(ctx context.Context, email string) (LoginAttempt, error) {
	email = core.CleanString(email, true /* lower */)
	la := LoginAttempt{
		ID:        uuid.NewString(),
		Email:     email,
		Timestamp: time.Now().UTC(),
		Status:    StatusFailed,
	}
	if svc.students != nil && email != "" {
		if st, err := svc.students.GetByEmail(ctx, email); err == nil {
			la.StudentName = st.StudentName
		} else if errors.Cause(err) != student.ErrNotFound {
			svc.logger.Warn(fmt.Sprintf("finding student of login attempt: %v", err), err)
		}
	}

	if key := throttleKey(email); svc.throttle != nil && key != "" {
		if _, err := svc.throttle.Hit(ctx, key); err != nil {
			svc.logger.Error(fmt.Sprintf("updating login throttle: %v", err), err)
		}
	}

	la, err := svc.repo.CreateLoginAttempt(ctx, la)
	return la, errors.Wrap(err, "creating login attempt")
}

// Reset clears the throttle of `email` after a successful login.
func (svc *Service) Reset(ctx context.Context, email string) {
	key := throttleKey(email)
	if svc.throttle == nil || key == "" {
		return
	}
	if err := svc.throttle.Reset(ctx, key); err != nil {
		svc.logger.Error(fmt.Sprintf("resetting login throttle: %v", err), err)
	}
}

func (svc *Service) List(ctx context.Context, limit int) ([]LoginAttempt, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return svc.repo.ListLoginAttempts(ctx, limit)
}

// Clear deletes every login attempt and returns a message describing the outcome.
func (svc *Service) Clear(ctx context.Context) (int, string, error) {
	n, err := svc.repo.ClearLoginAttempts(ctx)
	if err != nil {
		return 0, "", errors.Wrap(err, "clearing login attempts")
	}
	if n == 0 {
		return 0, "No logs to clear.", nil
	}
	return n, fmt.Sprintf("Successfully cleared %d log(s).", n), nil
}
