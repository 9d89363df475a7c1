package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"visionbatch/pkg/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	if err != nil || id != "1AbC-d_9" {
		t.Fatalf("got %q, %v", id, err)
	}

	if _, err := extractSpreadsheetID("https://example.com/not-a-sheet"); err == nil {
		t.Fatal("expected error for non-sheet URL")
	}
}

func TestConvertResultsToRows(t *testing.T) {
	s := &Service{now: func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }}

	rows := s.convertResultsToRows([]*models.AnnotationResult{
		{Source: "/scans/a.png", FullText: "HELLO", EntityCount: 2},
		{Source: "/scans/b.png", Err: errors.New("no text annotations in response")},
		{Source: "/scans/c.png"},
	})

	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].Filename != "a.png" || rows[0].Status != "success" || rows[0].Text != "HELLO" || rows[0].EntityCount != 2 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Status != "error" || rows[1].Error == "" {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[2].Status != "empty" {
		t.Errorf("row 2 = %+v", rows[2])
	}
	if rows[0].ProcessedAt != "01.03.2024 09:30:00" {
		t.Errorf("ProcessedAt = %q", rows[0].ProcessedAt)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("äöü", 2); got != "äö" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}

func TestExportAppendsRows(t *testing.T) {
	var (
		mu         sync.Mutex
		appendBody string
		calls      []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":append"):
			mu.Lock()
			appendBody = string(body)
			mu.Unlock()
			io.WriteString(w, `{}`)
		case strings.Contains(r.URL.Path, "/values/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"values": [][]string{{"Datei", "Pfad", "Status"}},
			})
		case r.Method == http.MethodGet:
			io.WriteString(w, `{"sheets":[{"properties":{"title":"OCR","sheetId":7}}]}`)
		default:
			http.Error(w, "unexpected call", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := sheets.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets.NewService: %v", err)
	}

	s := NewSheetsServiceWithClient(client, "sheet-123", "OCR")
	err = s.Export(ctx, []*models.AnnotationResult{
		{Source: "a.png", FullText: "HELLO", EntityCount: 2},
		{Source: "b.png", Err: errors.New("failed to read image")},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, want := range []string{"a.png", "HELLO", "b.png", "failed to read image", "error"} {
		if !strings.Contains(appendBody, want) {
			t.Errorf("append body missing %q: %s", want, appendBody)
		}
	}
	for _, call := range calls {
		if strings.HasPrefix(call, http.MethodPost) && strings.HasSuffix(call, ":batchUpdate") {
			t.Errorf("existing sheet with headers should not be modified: %s", call)
		}
	}
}

func TestExportNothing(t *testing.T) {
	s := &Service{}
	if err := s.Export(context.Background(), nil); err != nil {
		t.Fatalf("Export(nil) = %v", err)
	}
}
