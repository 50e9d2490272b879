// Package inventory owns the per-user item inventory: the in-memory mirror and
// its persistence. All access goes through one mutex, so concurrent command
// handlers cannot interleave a mutation with the full rewrite that follows it.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hyperjump/oboji/internal/models"
	"github.com/hyperjump/oboji/internal/storage"
	"go.uber.org/zap"
)

// Replies rendered by Render.
const (
	EmptyMessage = "📭 Seu inventário está vazio."
	Header       = "📦 Seu inventário:\n"
)

// ErrWrite wraps failures to persist the inventory after a mutation.
var ErrWrite = errors.New("inventory write failed")

// Store is the single owner of the inventory state.
type Store struct {
	mu      sync.Mutex
	backend storage.Storage
	inv     *models.Inventory
	logger  *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for load diagnostics and write failures.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a store over backend holding an empty inventory. Call Load to read persisted state.
func NewStore(backend storage.Storage, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		inv:     models.NewInventory(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted inventory. It never fails:
// a missing file gives an empty inventory, and unreadable or malformed content is
// logged and also gives an empty inventory.
func (s *Store) Load(ctx context.Context) {
	inv, err := s.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrMalformed) {
			s.logger.Warn("inventory data is malformed, starting empty",
				zap.String("path", s.backend.Path()), zap.Error(err))
		} else {
			s.logger.Error("inventory load failed, starting empty",
				zap.String("path", s.backend.Path()), zap.Error(err))
		}
		inv = models.NewInventory()
	}
	if inv.Dropped > 0 {
		s.logger.Warn("dropped inventory entries without a positive integer quantity",
			zap.String("path", s.backend.Path()), zap.Int("dropped", inv.Dropped))
		inv.Dropped = 0
	}
	s.mu.Lock()
	s.inv = inv
	s.mu.Unlock()
	s.logger.Info("inventory loaded", zap.String("path", s.backend.Path()), zap.Int("users", inv.Len()))
}

// AddItem increments item for userID (starting at 1) and rewrites storage.
// The new state is only kept when the write succeeds; otherwise the error wraps ErrWrite
// and the previous state stays in place.
func (s *Store) AddItem(ctx context.Context, userID, item string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.inv.Clone()
	qty := next.Add(userID, item)
	if err := s.backend.Save(ctx, next); err != nil {
		s.logger.Error("inventory write failed",
			zap.String("user_id", userID), zap.String("item", item), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	s.inv = next
	return qty, nil
}

// Render formats the inventory of userID for a chat reply.
func (s *Store) Render(userID string) string {
	return Format(s.Items(userID))
}

// Items returns a snapshot of userID's items in first-seen order.
func (s *Store) Items(userID string) []models.ItemCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inv.Items(userID)
}

// Users returns the number of users with an inventory.
func (s *Store) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inv.Len()
}

// Save rewrites storage with the current state.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Save(ctx, s.inv); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Format renders items as the chat reply: the empty message when there are none,
// else the header and one "- <item> x<qty>" line per item.
func Format(items []models.ItemCount) string {
	if len(items) == 0 {
		return EmptyMessage
	}
	var b strings.Builder
	b.WriteString(Header)
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it.Item)
		b.WriteString(" x")
		b.WriteString(strconv.Itoa(it.Quantity))
		b.WriteByte('\n')
	}
	return b.String()
}
