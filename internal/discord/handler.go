package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hyperjump/oboji/internal/bot"
	"github.com/hyperjump/oboji/internal/models"
	"github.com/hyperjump/oboji/pkg/utils"
	"go.uber.org/zap"
)

const (
	maxBodyBytes           = 1 << 20
	defaultFollowUpTimeout = 45 * time.Second
)

// Dispatcher runs commands. *bot.Router implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd *models.Command) (string, error)
	Lookup(name string) (bot.Definition, bool)
}

// FollowUpSender delivers the reply of a deferred command. *Client implements it.
type FollowUpSender interface {
	EditOriginal(ctx context.Context, interactionToken, content string) error
}

// Handler serves the interactions endpoint.
type Handler struct {
	router          Dispatcher
	verifier        *Verifier
	followUps       FollowUpSender
	followUpTimeout time.Duration
	logger          *zap.Logger
	pending         sync.WaitGroup
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithVerifier enables signature checks. Without one every request is accepted.
func WithVerifier(v *Verifier) HandlerOption {
	return func(h *Handler) { h.verifier = v }
}

// WithFollowUps enables deferred responses for commands marked Deferred.
// Without a sender those commands are answered synchronously.
func WithFollowUps(s FollowUpSender) HandlerOption {
	return func(h *Handler) { h.followUps = s }
}

// WithFollowUpTimeout bounds a deferred dispatch plus its follow-up edit.
func WithFollowUpTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.followUpTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler returns an interactions handler dispatching to router.
func NewHandler(router Dispatcher, opts ...HandlerOption) *Handler {
	h := &Handler{
		router:          router,
		followUpTimeout: defaultFollowUpTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if h.verifier != nil {
		if err := h.verifier.Verify(r.Header.Get(HeaderSignature), r.Header.Get(HeaderTimestamp), body); err != nil {
			h.logger.Warn("rejected interaction", zap.Error(err))
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	var in Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch in.Type {
	case InteractionPing:
		respondJSON(w, http.StatusOK, InteractionResponse{Type: ResponsePong})
	case InteractionApplicationCommand:
		h.handleCommand(w, r, &in)
	default:
		respondError(w, http.StatusBadRequest, "unsupported interaction type")
	}
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request, in *Interaction) {
	cmd := in.Command()
	if def, ok := h.router.Lookup(cmd.Name); ok && def.Deferred && h.followUps != nil && in.Token != "" {
		h.pending.Add(1)
		go h.followUp(cmd, in.Token)
		respondJSON(w, http.StatusOK, InteractionResponse{Type: ResponseDeferredChannelMessage})
		return
	}
	respondJSON(w, http.StatusOK, message(h.run(r.Context(), cmd)))
}

// followUp runs detached from the request, which has already been answered.
func (h *Handler) followUp(cmd *models.Command, token string) {
	defer h.pending.Done()
	ctx, cancel := context.WithTimeout(context.Background(), h.followUpTimeout)
	defer cancel()

	content := h.run(ctx, cmd)
	if err := h.followUps.EditOriginal(ctx, token, content); err != nil {
		h.logger.Error("follow-up failed", zap.String("command", cmd.Name), zap.Error(err))
	}
}

func (h *Handler) run(ctx context.Context, cmd *models.Command) string {
	reply, err := h.router.Dispatch(ctx, cmd)
	if err != nil {
		return bot.ErrorReply(err)
	}
	return reply
}

// Wait blocks until all deferred follow-ups have finished.
func (h *Handler) Wait() {
	h.pending.Wait()
}

func message(content string) InteractionResponse {
	return InteractionResponse{
		Type: ResponseChannelMessage,
		Data: &MessageData{Content: utils.Truncate(content, MaxContentLength)},
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
