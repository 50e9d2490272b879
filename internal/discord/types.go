// Package discord adapts Discord HTTP interactions to the command router and
// talks to the Discord REST API.
package discord

import "github.com/hyperjump/oboji/internal/models"

// MaxContentLength is the longest message content Discord accepts.
const MaxContentLength = 2000

// InteractionType identifies an inbound interaction.
type InteractionType int

// Interaction types.
const (
	InteractionPing               InteractionType = 1
	InteractionApplicationCommand InteractionType = 2
)

// ResponseType identifies how an interaction is answered.
type ResponseType int

// Interaction response types.
const (
	ResponsePong                   ResponseType = 1
	ResponseChannelMessage         ResponseType = 4
	ResponseDeferredChannelMessage ResponseType = 5
)

// applicationCommandChatInput is the command type of slash commands.
const applicationCommandChatInput = 1

// Interaction is the inbound payload posted to the interactions endpoint.
type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Token         string          `json:"token"`
	Data          *CommandData    `json:"data,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
}

// CommandData carries the invoked command and its options.
type CommandData struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Options []CommandOption `json:"options,omitempty"`
}

// CommandOption is one option value supplied by the user.
type CommandOption struct {
	Name  string      `json:"name"`
	Type  int         `json:"type"`
	Value interface{} `json:"value"`
}

// Member is a guild member; User is set inside guilds.
type Member struct {
	User *User `json:"user"`
}

// User is a Discord user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// InteractionResponse answers an interaction.
type InteractionResponse struct {
	Type ResponseType `json:"type"`
	Data *MessageData `json:"data,omitempty"`
}

// MessageData is the message part of a response or follow-up edit.
type MessageData struct {
	Content string `json:"content"`
}

// UserID returns the invoking user: the member's user in guilds, the user in DMs.
func (i *Interaction) UserID() string {
	if i.Member != nil && i.Member.User != nil && i.Member.User.ID != "" {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Command converts an application command interaction for the router.
// Options keep their decoded JSON values so the router can check their type.
func (i *Interaction) Command() *models.Command {
	cmd := &models.Command{UserID: i.UserID(), Params: map[string]interface{}{}}
	if i.Data == nil {
		return cmd
	}
	cmd.Name = i.Data.Name
	for _, opt := range i.Data.Options {
		cmd.Params[opt.Name] = opt.Value
	}
	return cmd
}
