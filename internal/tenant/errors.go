package tenant

import (
	"fmt"
	"net/http"
)

// Code is a stable error symbol. Transports map codes to status verbatim;
// the kernel never swallows these.
type Code string

const (
	CodeNoToken               Code = "NoToken"
	CodeInvalidToken          Code = "InvalidToken"
	CodeTokenExpired          Code = "TokenExpired"
	CodeUserNotFound          Code = "UserNotFound"
	CodeAccountDisabled       Code = "AccountDisabled"
	CodeTenantRequired        Code = "TenantRequired"
	CodeInvalidTenantKey      Code = "InvalidTenantKey"
	CodeTenantNotFound        Code = "TenantNotFound"
	CodeTenantSuspended       Code = "TenantSuspended"
	CodeSubscriptionSuspended Code = "SubscriptionSuspended"
	CodeSubscriptionExpired   Code = "SubscriptionExpired"
	CodeCrossTenantDenied     Code = "CrossTenantDenied"
	CodeInsufficientRole      Code = "InsufficientRole"
	CodePlanLimitReached      Code = "PlanLimitReached"
	CodeModuleDisabled        Code = "ModuleDisabled"
	CodeOriginNotAllowed      Code = "OriginNotAllowed"
)

var codeStatus = map[Code]int{
	CodeNoToken:               http.StatusUnauthorized,
	CodeInvalidToken:          http.StatusUnauthorized,
	CodeTokenExpired:          http.StatusUnauthorized,
	CodeUserNotFound:          http.StatusUnauthorized,
	CodeAccountDisabled:       http.StatusUnauthorized,
	CodeTenantRequired:        http.StatusBadRequest,
	CodeInvalidTenantKey:      http.StatusBadRequest,
	CodeTenantNotFound:        http.StatusNotFound,
	CodeTenantSuspended:       http.StatusForbidden,
	CodeSubscriptionSuspended: http.StatusForbidden,
	CodeSubscriptionExpired:   http.StatusForbidden,
	CodeCrossTenantDenied:     http.StatusForbidden,
	CodeInsufficientRole:      http.StatusForbidden,
	CodePlanLimitReached:      http.StatusForbidden,
	CodeModuleDisabled:        http.StatusForbidden,
	CodeOriginNotAllowed:      http.StatusForbidden,
}

// Error carries a stable code, a short human message and optional details.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status returns the HTTP status the code maps to.
func (e *Error) Status() int {
	if s, ok := codeStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Is matches any *Error with the same code, so wrapped or detailed errors
// still compare equal to the sentinels below via errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy of the error enriched with detail fields.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

var (
	ErrNoToken               = &Error{Code: CodeNoToken, Message: "authorization token is required"}
	ErrInvalidToken          = &Error{Code: CodeInvalidToken, Message: "invalid token"}
	ErrTokenExpired          = &Error{Code: CodeTokenExpired, Message: "token has expired"}
	ErrUserNotFound          = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrAccountDisabled       = &Error{Code: CodeAccountDisabled, Message: "account is disabled"}
	ErrTenantRequired        = &Error{Code: CodeTenantRequired, Message: "tenant could not be identified; supply x-tenant-id or x-tenant-key, or use your tenant subdomain"}
	ErrInvalidTenantKey      = &Error{Code: CodeInvalidTenantKey, Message: "tenant key must be lowercase letters, digits, dots, underscores or hyphens"}
	ErrTenantNotFound        = &Error{Code: CodeTenantNotFound, Message: "tenant not found"}
	ErrTenantSuspended       = &Error{Code: CodeTenantSuspended, Message: "tenant is suspended"}
	ErrSubscriptionSuspended = &Error{Code: CodeSubscriptionSuspended, Message: "subscription is suspended"}
	ErrSubscriptionExpired   = &Error{Code: CodeSubscriptionExpired, Message: "subscription has expired"}
	ErrCrossTenantDenied     = &Error{Code: CodeCrossTenantDenied, Message: "operation crosses tenant boundary"}
	ErrInsufficientRole      = &Error{Code: CodeInsufficientRole, Message: "insufficient permissions"}
	ErrPlanLimitReached      = &Error{Code: CodePlanLimitReached, Message: "plan limit reached"}
	ErrModuleDisabled        = &Error{Code: CodeModuleDisabled, Message: "module is not enabled for this tenant"}
	ErrOriginNotAllowed      = &Error{Code: CodeOriginNotAllowed, Message: "origin is not allowed"}
)

// Realtime handshake rejection reasons, returned verbatim to clients.
const (
	ReasonAuthenticationRequired = "authentication-required"
	ReasonInvalidToken           = "invalid-token"
	ReasonUserNotFound           = "user-not-found"
	ReasonTenantNotIdentified    = "tenant-not-identified"
	ReasonTenantSuspended        = "tenant-suspended"
	ReasonCrossTenant            = "access-denied-cross-tenant"
)

// RejectionReason maps a kernel error to its handshake rejection string.
func RejectionReason(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return ReasonInvalidToken
	}
	switch e.Code {
	case CodeNoToken:
		return ReasonAuthenticationRequired
	case CodeUserNotFound:
		return ReasonUserNotFound
	case CodeTenantRequired, CodeTenantNotFound:
		return ReasonTenantNotIdentified
	case CodeTenantSuspended, CodeSubscriptionSuspended, CodeSubscriptionExpired:
		return ReasonTenantSuspended
	case CodeCrossTenantDenied:
		return ReasonCrossTenant
	default:
		return ReasonInvalidToken
	}
}
