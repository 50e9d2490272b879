package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/oboji/internal/bot"
	"github.com/hyperjump/oboji/internal/models"
)

type commandView struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Options     []bot.Option `json:"options,omitempty"`
	Deferred    bool         `json:"deferred"`
}

type inventoryView struct {
	UserID  string             `json:"user_id"`
	Items   []models.ItemCount `json:"items"`
	Summary string             `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	defs := s.commands.Definitions()
	out := make([]commandView, 0, len(defs))
	for _, d := range defs {
		out = append(out, commandView{
			Name:        d.Name,
			Description: d.Description,
			Options:     d.Options,
			Deferred:    d.Deferred,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"commands": out})
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(chi.URLParam(r, "user"))
	if user == "" {
		s.respondError(w, http.StatusBadRequest, "user is required")
		return
	}
	items := s.inventory.Items(user)
	if items == nil {
		items = []models.ItemCount{}
	}
	s.respondJSON(w, http.StatusOK, inventoryView{
		UserID:  user,
		Items:   items,
		Summary: s.inventory.Render(user),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
