package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/oboji/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"compact", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteInventory_Text(t *testing.T) {
	var buf bytes.Buffer
	report := InventoryReport{UserID: "u1", Items: []models.ItemCount{{Item: "sword", Quantity: 2}}}
	if err := WriteInventory(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "📦 Seu inventário:\n- sword x2\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	buf.Reset()
	if err := WriteInventory(&buf, InventoryReport{UserID: "u2"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "📭 Seu inventário está vazio.\n" {
		t.Errorf("empty got %q", got)
	}
}

func TestWriteInventory_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInventory(&buf, InventoryReport{UserID: "u2"}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["user_id"] != "u2" {
		t.Errorf("user_id = %v", decoded["user_id"])
	}
	if items, ok := decoded["items"].([]interface{}); !ok || len(items) != 0 {
		t.Errorf("items = %v, want empty list", decoded["items"])
	}
}

func TestWriteStatus(t *testing.T) {
	disk := int64(128)
	status := &Status{
		Backend:        "json",
		StoragePath:    "/data/inventories.json",
		Users:          3,
		DiskUsageBytes: &disk,
		KnowledgePath:  "/data/knowledge.txt",
		AIConfigured:   true,
		AIEndpoint:     "http://ai",
		AITimeout:      "30s",
		Commands:       []string{"ping", "inventory"},
	}

	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"users:              3", "disk_usage_bytes:   128", "file not found", "commands:           ping, inventory"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, status, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded Status
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Users != 3 || decoded.DiskUsageBytes == nil || *decoded.DiskUsageBytes != 128 || decoded.KnowledgeBytes != nil {
		t.Errorf("decoded = %+v", decoded)
	}
}
