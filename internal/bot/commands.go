package bot

import (
	"context"
	"strings"

	"github.com/hyperjump/oboji/internal/models"
)

// Command names.
const (
	CmdPing       = "ping"
	CmdItemAppend = "item_append"
	CmdInventory  = "inventory"
	CmdObojiChat  = "obojichat"
)

// Fixed replies.
const (
	PongReply       = "Pong!"
	itemAddedPrefix = "✅ Item adicionado: "
)

// InventoryStore is the part of the inventory store the commands use.
type InventoryStore interface {
	AddItem(ctx context.Context, userID, item string) (int, error)
	Render(userID string) string
}

// Asker answers free-form questions. It reports failures in the returned string.
type Asker interface {
	Ask(ctx context.Context, question, apiKey string) string
}

// Deps are the collaborators of the built-in commands.
type Deps struct {
	Inventory InventoryStore
	AI        Asker
	APIKey    string
}

// NewDefaultRouter returns a router with ping, item_append, inventory and obojichat registered.
func NewDefaultRouter(deps Deps, opts ...RouterOption) (*Router, error) {
	r := NewRouter(opts...)
	for _, def := range DefaultDefinitions(deps) {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultDefinitions returns the built-in command table.
func DefaultDefinitions(deps Deps) []Definition {
	return []Definition{
		{
			Name:        CmdPing,
			Description: "Responde com Pong!",
			Handler: func(context.Context, *models.Command) (string, error) {
				return PongReply, nil
			},
		},
		{
			Name:        CmdItemAppend,
			Description: "Adiciona um item ao seu inventário",
			Options: []Option{
				{Name: "item", Description: "Nome do item", Type: OptionString, Required: true},
			},
			Handler: func(ctx context.Context, cmd *models.Command) (string, error) {
				item, _, _ := cmd.StringParam("item")
				item = strings.TrimSpace(item)
				if _, err := deps.Inventory.AddItem(ctx, cmd.UserID, item); err != nil {
					return "", err
				}
				return itemAddedPrefix + item, nil
			},
		},
		{
			Name:        CmdInventory,
			Description: "Mostra seu inventário",
			Handler: func(_ context.Context, cmd *models.Command) (string, error) {
				return deps.Inventory.Render(cmd.UserID), nil
			},
		},
		{
			Name:        CmdObojiChat,
			Description: "Pergunte algo ao Oboji",
			Options: []Option{
				{Name: "message", Description: "Sua pergunta", Type: OptionString, Required: true},
			},
			Deferred: true,
			Handler: func(ctx context.Context, cmd *models.Command) (string, error) {
				msg, _, _ := cmd.StringParam("message")
				return deps.AI.Ask(ctx, msg, deps.APIKey), nil
			},
		},
	}
}
