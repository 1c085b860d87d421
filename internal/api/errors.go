package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. Every failure returned by Client wraps exactly one of them.
var (
	ErrValidation       = errors.New("invalid request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrServer           = errors.New("server error")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrConnection       = errors.New("connection failed")
	ErrDecode           = errors.New("malformed response")
)

// Error describes a failed API operation.
type Error struct {
	Op      string
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status=%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classifyHTTPError maps a non-2xx response to an *Error. remote is the "erro"
// field of the body, if any.
func classifyHTTPError(op string, status int, remote string) *Error {
	e := &Error{Op: op, Status: status, Message: strings.TrimSpace(remote)}
	switch {
	case status == http.StatusBadRequest:
		e.Kind = ErrValidation
	case status == http.StatusUnauthorized:
		e.Kind = ErrUnauthorized
	case status == http.StatusForbidden:
		e.Kind = ErrForbidden
	case status == http.StatusNotFound:
		e.Kind = ErrNotFound
	case status == http.StatusInternalServerError:
		e.Kind = ErrServer
	default:
		e.Kind = ErrUnexpectedStatus
	}
	return e
}

func connectionError(op string, err error) *Error {
	return &Error{Op: op, Kind: ErrConnection, Err: err}
}

func validationError(op, message string, err error) *Error {
	return &Error{Op: op, Kind: ErrValidation, Message: message, Err: err}
}

// UserMessage returns the Portuguese message shown to the operator for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "Erro de conexão com o servidor"
		}
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
		return "Erro desconhecido"
	}

	switch apiErr.Kind {
	case ErrValidation:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Dados inválidos"
	case ErrUnauthorized:
		return "Não autorizado"
	case ErrForbidden:
		return "Acesso negado"
	case ErrNotFound:
		return "Recurso não encontrado"
	case ErrServer:
		return "Erro interno do servidor"
	case ErrConnection:
		return "Erro de conexão com o servidor"
	case ErrUnexpectedStatus:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Erro %d", apiErr.Status)
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return "Erro desconhecido"
}
