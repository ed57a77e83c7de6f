package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"winshirt-sync/internal/repository"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrOffline             = errors.New("remote service unreachable")
	ErrNotReadyForDraw     = errors.New("lottery is not ready for draw")
	ErrLotteryNotActive    = errors.New("lottery is not active")
	ErrNoParticipants      = errors.New("lottery has no participants")
	ErrLotteryNotCompleted = errors.New("lottery is not completed")
	ErrCategoryInUse       = errors.New("category is used by visuals")
	ErrInvalidSnapshot     = errors.New("backup payload must be a JSON object")
	ErrAccountExists       = errors.New("an account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotConfirmed   = errors.New("email address is not confirmed")
	ErrInvalidToken        = errors.New("invalid or expired token")
)

// ValidationError reports entity fields that failed validation.
type ValidationError struct {
	Entity string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// Add records a failed field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// newValidationError converts struct validation failures to a ValidationError.
func newValidationError(entity string, err error) error {
	if err == nil {
		return nil
	}
	ve := &ValidationError{Entity: entity}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			ve.Add(jsonPath(fe.Namespace()), fe.Tag())
		}
		return ve
	}
	ve.Add("_", err.Error())
	return ve
}

// jsonPath turns "Product.PrintAreas[0].Position" into "printAreas[0].position".
func jsonPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

// RemoteError marks a failed remote operation.
type RemoteError struct {
	Op    string
	Table string
	Err   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s on %s failed: %v", e.Op, e.Table, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func remoteErr(op, table string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", table, ErrNotFound)
	}
	return &RemoteError{Op: op, Table: table, Err: err}
}
