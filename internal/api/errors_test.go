package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		status int
		remote string
		kind   error
		msg    string
	}{
		{http.StatusBadRequest, "Campo telefone é obrigatório", ErrValidation, "Campo telefone é obrigatório"},
		{http.StatusBadRequest, "", ErrValidation, "Dados inválidos"},
		{http.StatusUnauthorized, "token", ErrUnauthorized, "Não autorizado"},
		{http.StatusForbidden, "", ErrForbidden, "Acesso negado"},
		{http.StatusNotFound, "Cliente não encontrado", ErrNotFound, "Recurso não encontrado"},
		{http.StatusInternalServerError, "boom", ErrServer, "Erro interno do servidor"},
		{http.StatusBadGateway, "", ErrUnexpectedStatus, "Erro 502"},
		{http.StatusConflict, "Já existe", ErrUnexpectedStatus, "Já existe"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_%s", tc.status, tc.remote), func(t *testing.T) {
			err := classifyHTTPError("op", tc.status, tc.remote)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.status, err.Status)
			assert.Equal(t, tc.msg, UserMessage(err))
		})
	}
}

func TestUserMessageForTransportAndForeignErrors(t *testing.T) {
	conn := connectionError("clients.list", errors.New("dial tcp: refused"))
	assert.ErrorIs(t, conn, ErrConnection)
	assert.Equal(t, "Erro de conexão com o servidor", UserMessage(conn))

	wrapped := fmt.Errorf("refresh: %w", conn)
	assert.Equal(t, "Erro de conexão com o servidor", UserMessage(wrapped))

	assert.Equal(t, "Erro de conexão com o servidor", UserMessage(context.DeadlineExceeded))
	assert.Equal(t, "algo deu errado", UserMessage(errors.New("algo deu errado")))
	assert.Equal(t, "", UserMessage(nil))
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("reset by peer")
	err := connectionError("op", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "reset by peer")
	assert.Contains(t, err.Error(), "api op")
}
