package bizerror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadParam
	KindUnauthenticated
	KindNotFound
	KindForbidden
	KindConflict
	KindExpired
	KindUpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case KindBadParam:
		return "BadParam"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindConflict:
		return "Conflict"
	case KindExpired:
		return "Expired"
	case KindUpstreamFailure:
		return "UpstreamFailure"
	default:
		return "Internal"
	}
}

// Status is the http status a kind is surfaced with.
func (k Kind) Status() int {
	switch k {
	case KindBadParam:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    int
	Message string

	Data  interface{}
	Cause error
}

type Error struct {
	Kind    Kind
	Code    int
	Key     string
	Message string
	Data    interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Key, e.Cause)
	}
	return e.Key
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so wrapped copies match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: e.Kind.Status(), Code: e.Code, Message: e.Message, Data: e.Data, Cause: e.Cause}
}

// Wrap returns a copy of the sentinel carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// WithData returns a copy of the sentinel carrying response data.
func (e *Error) WithData(data interface{}) *Error {
	c := *e
	c.Data = data
	return &c
}

func newError(kind Kind, code int, key, message string) *Error {
	return &Error{Kind: kind, Code: code, Key: key, Message: message}
}

var (
	ErrInternal        = newError(KindInternal, 100, "common.internal", "please contact support")
	ErrBadParam        = newError(KindBadParam, 101, "common.bad_param", "bad parameter")
	ErrUnauthenticated = newError(KindUnauthenticated, 102, "common.unauthenticated", "unauthenticated")
	ErrNotFound        = newError(KindNotFound, 103, "common.record_not_found", "record not found")

	ErrProjectNotFound = newError(KindNotFound, 300, "project.not_found", "project not found")
	ErrBoardNotFound   = newError(KindNotFound, 301, "board.not_found", "board not found")
	ErrForbidden       = newError(KindForbidden, 302, "security.forbidden", "access denied")
	ErrProjectNotEmpty = newError(KindConflict, 303, "project.not_empty", "project still has boards or open tasks")
	ErrProjectInactive = newError(KindConflict, 304, "project.inactive", "project is inactive")
	ErrBoardNotEmpty   = newError(KindConflict, 305, "board.not_empty", "board still has open tasks")
	ErrBoardInactive   = newError(KindConflict, 306, "board.inactive", "board is inactive")

	ErrWorkflowNotFound       = newError(KindNotFound, 310, "workflow.not_found", "workflow not found")
	ErrStateNotFound          = newError(KindNotFound, 311, "workflow.state_not_found", "state not found")
	ErrInvalidOrder           = newError(KindConflict, 312, "workflow.invalid_order", "state order numbers must form a contiguous run starting at 1")
	ErrStateInUse             = newError(KindConflict, 313, "workflow.state_in_use", "workflow states are referenced by tasks")
	ErrSystemWorkflowReadonly = newError(KindForbidden, 314, "workflow.system_readonly", "system workflow is read-only")
	ErrWorkflowNotEmpty       = newError(KindConflict, 315, "workflow.not_empty", "workflow still has states")
	ErrInvalidStateWorkflow   = newError(KindConflict, 316, "workflow.invalid_state_workflow", "state does not belong to the task workflow")

	ErrTaskNotFound              = newError(KindNotFound, 320, "task.not_found", "task not found")
	ErrDeadlineExpired           = newError(KindExpired, 321, "task.deadline_expired", "task deadline has expired")
	ErrDeadlineInPast            = newError(KindBadParam, 322, "task.deadline_in_past", "deadline must be in the future")
	ErrEmployeeAlreadyAssigned   = newError(KindConflict, 323, "task.employee_already_assigned", "employee is already assigned")
	ErrAssigneeNotFound          = newError(KindNotFound, 324, "task.assignee_not_found", "assignee not found")
	ErrEmployeeNotInOrganization = newError(KindForbidden, 325, "task.employee_not_in_organization", "employee does not belong to the organization")
	ErrEmployeeInactive          = newError(KindForbidden, 326, "task.employee_inactive", "employee is inactive")

	ErrNotificationNotFound = newError(KindNotFound, 330, "notification.not_found", "notification not found")

	ErrTokenInvalid = newError(KindExpired, 340, "telegram.token_invalid", "token invalid or expired")

	ErrUpstreamFailure  = newError(KindUpstreamFailure, 400, "upstream.failure", "upstream service call failed")
	ErrEmployeeNotFound = newError(KindNotFound, 401, "directory.employee_not_found", "employee not found")
)

// KindOf reports the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// BadParam reports a malformed request, the cause message is returned to the caller.
func BadParam(cause error) *Error {
	return ErrBadParam.Wrap(cause).WithData(cause.Error())
}
