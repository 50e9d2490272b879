// Package cli provides output helpers for the oboji command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/oboji/internal/inventory"
	"github.com/hyperjump/oboji/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// InventoryReport is one user's inventory as printed by the inventory subcommand.
type InventoryReport struct {
	UserID string             `json:"user_id"`
	Items  []models.ItemCount `json:"items"`
}

// WriteInventory writes a user's inventory to w. Text output is the chat reply.
func WriteInventory(w io.Writer, report InventoryReport, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if report.Items == nil {
			report.Items = []models.ItemCount{}
		}
		return writeJSON(w, report)
	default:
		text := inventory.Format(report.Items)
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err := io.WriteString(w, text)
		return err
	}
}

// Status summarizes the bot's local state for the status subcommand.
type Status struct {
	Backend        string   `json:"backend"`
	StoragePath    string   `json:"storage_path"`
	Users          int      `json:"users"`
	DiskUsageBytes *int64   `json:"disk_usage_bytes,omitempty"`
	KnowledgePath  string   `json:"knowledge_path"`
	KnowledgeBytes *int64   `json:"knowledge_bytes,omitempty"`
	AIConfigured   bool     `json:"ai_configured"`
	AIEndpoint     string   `json:"ai_endpoint"`
	AITimeout      string   `json:"ai_timeout"`
	Commands       []string `json:"commands"`
}

// WriteStatus writes status to w in the given format.
func WriteStatus(w io.Writer, status *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "backend:            %s\n", status.Backend)
	fmt.Fprintf(w, "storage_path:       %s\n", status.StoragePath)
	fmt.Fprintf(w, "users:              %d   # users with an inventory\n", status.Users)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# knowledge")
	fmt.Fprintf(w, "knowledge_path:     %s\n", status.KnowledgePath)
	if status.KnowledgeBytes != nil {
		fmt.Fprintf(w, "knowledge_bytes:    %d\n", *status.KnowledgeBytes)
	} else {
		fmt.Fprintln(w, "knowledge_bytes:    -   # file not found")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# ai")
	fmt.Fprintf(w, "ai_configured:      %t\n", status.AIConfigured)
	fmt.Fprintf(w, "ai_endpoint:        %s\n", status.AIEndpoint)
	fmt.Fprintf(w, "ai_timeout:         %s\n", status.AITimeout)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "commands:           %s\n", strings.Join(status.Commands, ", "))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
