package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/workflow"
)

func TestWriter_RecordDecision(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	firstTime := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	secondTime := firstTime.Add(5 * time.Second)
	count := 3

	if err := writer.Record(workflow.Decision{
		Time:    firstTime,
		Kind:    workflow.KindMigration,
		StoreID: "1",
		ID:      "7",
		Action:  "approve",
		Count:   &count,
		Class:   workflow.ClassNone,
	}); err != nil {
		t.Fatalf("Record first decision error: %v", err)
	}

	conflict := &api.Error{StatusCode: 409, Code: "M003", Message: "이미 처리된 요청입니다"}
	if err := writer.Record(workflow.Decision{
		Time:    secondTime,
		Kind:    workflow.KindIssuance,
		StoreID: "1",
		ID:      "8",
		Action:  "reject",
		Reason:  "거부됨",
		Class:   workflow.ClassConflict,
		Err:     conflict,
	}); err != nil {
		t.Fatalf("Record second decision error: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Open audit file error: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lines := make([]string, 0, 2)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan audit file error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 jsonl lines, got %d", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first line error: %v", err)
	}
	if !first.Time.Equal(firstTime) {
		t.Fatalf("expected first time %s, got %s", firstTime, first.Time)
	}
	if first.Kind != "migration" || first.ID != "7" || first.Action != "approve" {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if first.Count == nil || *first.Count != 3 {
		t.Fatalf("expected first count 3, got %v", first.Count)
	}
	if first.Result != "ok" {
		t.Fatalf("expected first result ok, got %q", first.Result)
	}
	if first.Error != "" {
		t.Fatalf("expected no error on first event, got %q", first.Error)
	}

	var second Event
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second line error: %v", err)
	}
	if second.Result != "conflict" {
		t.Fatalf("expected second result conflict, got %q", second.Result)
	}
	if second.Reason != "거부됨" {
		t.Fatalf("expected second reason, got %q", second.Reason)
	}
	if second.Count != nil {
		t.Fatalf("expected no count on reject, got %v", *second.Count)
	}
	if second.Error == "" {
		t.Fatal("expected error text on conflict event")
	}
}

func TestWriter_Append_MkdirAllFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "state")
	if err := os.WriteFile(blocker, []byte("not-a-dir"), 0644); err != nil {
		t.Fatalf("WriteFile blocker error: %v", err)
	}

	writer := NewWriter(blocker)
	err := writer.Append(Event{Time: time.Now().UTC(), Kind: "issuance", ID: "1", Action: "approve"})
	if err == nil {
		t.Fatal("expected append error when the log directory is a file")
	}
}

func TestWriter_Append_Concurrent(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	const total = 20
	var wg sync.WaitGroup
	errCh := make(chan error, total)
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			if err := writer.Append(Event{
				Time:   time.Date(2026, 3, 2, 9, 0, i, 0, time.UTC),
				Kind:   "issuance",
				ID:     fmt.Sprintf("%d", i),
				Action: "approve",
				Result: "ok",
			}); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("append failed in concurrent path: %v", err)
	}

	events, err := writer.Recent(0)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(events) != total {
		t.Fatalf("expected %d events, got %d", total, len(events))
	}
}

func TestWriter_Recent(t *testing.T) {
	writer := NewWriter(t.TempDir())

	events, err := writer.Recent(5)
	if err != nil {
		t.Fatalf("Recent on missing log error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}

	for i := 1; i <= 4; i++ {
		if err := writer.Append(Event{Kind: "issuance", ID: fmt.Sprintf("%d", i), Action: "approve", Result: "ok"}); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	f, err := os.OpenFile(writer.Path(), os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("{broken\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	events, err = writer.Recent(2)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "3" || events[1].ID != "4" {
		t.Fatalf("expected newest two events oldest first, got %s,%s", events[0].ID, events[1].ID)
	}
}
