package bot

import (
	"errors"
	"strings"

	"github.com/hyperjump/oboji/internal/inventory"
)

// ErrorReply renders a dispatch error as a chat reply. Details beyond the
// parameter or command name are left to the logs.
func ErrorReply(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownCommand):
		return "⚠️ Comando desconhecido: " + detail(err, ErrUnknownCommand)
	case errors.Is(err, ErrMissingParameter):
		return "⚠️ Parâmetro obrigatório ausente: " + detail(err, ErrMissingParameter)
	case errors.Is(err, ErrInvalidParameter):
		return "⚠️ Parâmetro inválido: " + detail(err, ErrInvalidParameter)
	case errors.Is(err, inventory.ErrWrite):
		return "⚠️ Não foi possível salvar o inventário."
	default:
		return "⚠️ Algo deu errado ao processar o comando."
	}
}

// detail returns what follows "<sentinel>: " in err's message.
func detail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
