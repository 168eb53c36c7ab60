package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/medialog/medialog/internal/repository"
)

func sampleRows() []repository.ReviewExportRow {
	comment := "slow start, great ending"
	return []repository.ReviewExportRow{
		{
			ID:        "r1",
			TitleName: "Some Movie",
			UserName:  "Ana",
			UserEmail: "ana@example.com",
			Comment:   &comment,
			Score:     8,
			CreatedAt: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:        "r2",
			TitleName: "Some Movie",
			UserName:  "Ben",
			UserEmail: "ben@example.com",
			Score:     6,
			CreatedAt: time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3 (header + 2 rows)", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,title,userName") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "slow start") {
		t.Fatalf("comment missing from first row: %s", lines[1])
	}
	// Nil comment renders as an empty field.
	if !strings.Contains(lines[2], ",,6,") {
		t.Fatalf("empty comment not rendered: %s", lines[2])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRows()); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("row count = %d, want 2", len(decoded))
	}
	if decoded[0]["score"] != float64(8) {
		t.Fatalf("score = %v, want 8", decoded[0]["score"])
	}
	if _, present := decoded[1]["comment"]; present {
		t.Fatalf("nil comment serialized: %v", decoded[1])
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("empty export = %q, want []", buf.String())
	}
}
