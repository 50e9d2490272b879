// Package bot routes slash commands to their handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/oboji/internal/models"
	"go.uber.org/zap"
)

// Router errors. Use errors.Is; ErrorReply turns them into chat replies.
var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// OptionType is the declared type of a command parameter.
type OptionType int

// Option types, numbered as the gateway numbers them.
const (
	OptionString OptionType = 3
)

// Option declares one command parameter.
type Option struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        OptionType `json:"type"`
	Required    bool       `json:"required,omitempty"`
}

// HandlerFunc produces the reply for a validated command.
type HandlerFunc func(ctx context.Context, cmd *models.Command) (string, error)

// Definition is one entry of the dispatch table.
type Definition struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Options     []Option `json:"options,omitempty"`
	// Deferred marks commands slow enough that the gateway should acknowledge
	// first and deliver the reply later.
	Deferred bool        `json:"-"`
	Handler  HandlerFunc `json:"-"`
}

// Router dispatches commands by name. It holds no per-request state.
type Router struct {
	defs   map[string]*Definition
	order  []string
	logger *zap.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter returns an empty router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		defs:   make(map[string]*Definition),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds def to the table. Names must be unique and non-empty, options
// must be named and of a supported type, and a handler is required.
func (r *Router) Register(def Definition) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errors.New("command name cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("command %q has no handler", name)
	}
	if _, dup := r.defs[name]; dup {
		return fmt.Errorf("command %q registered twice", name)
	}
	seen := make(map[string]bool, len(def.Options))
	for _, opt := range def.Options {
		if opt.Name == "" {
			return fmt.Errorf("command %q has an unnamed option", name)
		}
		if seen[opt.Name] {
			return fmt.Errorf("command %q declares option %q twice", name, opt.Name)
		}
		seen[opt.Name] = true
		if opt.Type != OptionString {
			return fmt.Errorf("command %q option %q has unsupported type %d", name, opt.Name, opt.Type)
		}
	}
	def.Name = name
	r.defs[name] = &def
	r.order = append(r.order, name)
	return nil
}

// Definitions returns the registered commands in registration order.
func (r *Router) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.defs[name])
	}
	return out
}

// Lookup returns the definition for name.
func (r *Router) Lookup(name string) (Definition, bool) {
	def, ok := r.defs[strings.TrimSpace(name)]
	if !ok {
		return Definition{}, false
	}
	return *def, true
}

// Dispatch validates cmd against its definition and runs the handler.
func (r *Router) Dispatch(ctx context.Context, cmd *models.Command) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}
	eventID := uuid.NewString()
	log := r.logger.With(
		zap.String("event_id", eventID),
		zap.String("command", cmd.Name),
		zap.String("user_id", cmd.UserID),
	)

	def, ok := r.defs[cmd.Name]
	if !ok {
		log.Warn("unknown command")
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	if err := checkParams(def, cmd); err != nil {
		log.Warn("rejected command parameters", zap.Error(err))
		return "", err
	}

	log.Debug("dispatching command")
	reply, err := def.Handler(ctx, cmd)
	if err != nil {
		log.Error("command failed", zap.Error(err))
		return "", err
	}
	return reply, nil
}

func checkParams(def *Definition, cmd *models.Command) error {
	for _, opt := range def.Options {
		v, present, isString := cmd.StringParam(opt.Name)
		if !present {
			if opt.Required {
				return fmt.Errorf("%w: %s", ErrMissingParameter, opt.Name)
			}
			continue
		}
		if !isString {
			return fmt.Errorf("%w: %s", ErrInvalidParameter, opt.Name)
		}
		if opt.Required && strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrMissingParameter, opt.Name)
		}
	}
	return nil
}
