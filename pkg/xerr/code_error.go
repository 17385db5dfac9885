package xerr

import "fmt"

// CodeError carries an HTTP-style code alongside the message so handlers can
// map domain failures onto uniform API responses.
type CodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Message: msg}
}

const (
	OK                  = 200
	BadRequest          = 400
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrSuccess     = New(OK, "Success")
	ErrServerError = New(InternalServerError, "internal error")
	ErrParam       = New(BadRequest, "invalid parameter")
	ErrNotFound    = New(NotFound, "not found")
)
