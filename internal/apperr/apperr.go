// Package apperr holds the typed errors the HTTP layer knows how to render.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type NotFound struct {
	Resource string
	ID       any
}

func (e *NotFound) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NewNotFound(resource string, id any) error { return &NotFound{Resource: resource, ID: id} }

// Validation maps a field name to its messages.
type Validation struct {
	Fields map[string][]string
}

func (e *Validation) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg against field.
func (e *Validation) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// OrNil returns e when any field was recorded.
func (e *Validation) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func Invalid(field, msg string) error {
	v := &Validation{}
	v.Add(field, msg)
	return v
}

// Status carries an explicit HTTP status and a client-facing message.
type Status struct {
	Code    int
	Msg     string
	Details map[string]any
}

func (e *Status) Error() string { return e.Msg }

func Message(code int, msg string) error { return &Status{Code: code, Msg: msg} }

func BadRequest(msg string) error { return Message(http.StatusBadRequest, msg) }

func Forbidden(msg string) error { return Message(http.StatusForbidden, msg) }

func Unauthorized(msg string) error { return Message(http.StatusUnauthorized, msg) }

func Conflict(msg string) error { return Message(http.StatusConflict, msg) }

// PaymentRequired is returned when the subscription blocks the request.
// It renders as 403 with the extra details merged into the body.
func PaymentRequired(msg string, details map[string]any) error {
	return &Status{Code: http.StatusForbidden, Msg: msg, Details: details}
}

// Upstream wraps a payment gateway failure.
type Upstream struct {
	Service string
	Err     error
}

func (e *Upstream) Error() string { return fmt.Sprintf("%s: %v", e.Service, e.Err) }

func (e *Upstream) Unwrap() error { return e.Err }

// HTTPStatus maps err to a response code; unknown errors are 500.
func HTTPStatus(err error) int {
	var (
		nf *NotFound
		v  *Validation
		st *Status
		up *Upstream
	)
	switch {
	case errors.As(err, &v):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &st):
		return st.Code
	case errors.As(err, &up):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	var nf *NotFound
	return errors.As(err, &nf)
}
