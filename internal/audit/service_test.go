package audit

import (
	"context"
	"testing"
	"time"

	"hangup-attribution/internal/hangupby"
)

func TestService_AppendRequiresWorkspaceAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeAttribution}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{WorkspaceSID: "WS1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_LogAttribution(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	actor := Actor{WorkspaceSID: "WS1", WorkerSID: "WK1", Role: "agent", Source: "plugin"}

	out := hangupby.Outcome{SID: "WR1", TaskSID: "WT1", Prior: hangupby.WarmTransfer, Value: hangupby.Customer, Persisted: false}
	if err := svc.LogAttribution(context.Background(), actor, out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned: %+v", e)
	}
	if e.Type != EventTypeAttribution || e.HangUpBy != hangupby.Customer || e.Prior != hangupby.WarmTransfer {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Persisted || e.Message != "hang_up_by not persisted" {
		t.Fatalf("expected unpersisted outcome recorded: %+v", e)
	}
}

func TestService_LogAttributionSkipsSkippedOutcomes(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.LogAttribution(context.Background(), Actor{WorkspaceSID: "WS1"}, hangupby.Outcome{SID: "WR1", Skipped: hangupby.SkipDuplicate})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("expected nothing recorded")
	}
}

func TestMemoryRepo_ListAttributionsIsolatesWorkspaces(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	ctx := context.Background()
	_ = repo.Append(ctx, Event{WorkspaceSID: "WS1", Type: EventTypeAttribution, CreatedAt: now})
	_ = repo.Append(ctx, Event{WorkspaceSID: "WS2", Type: EventTypeAttribution, CreatedAt: now})
	_ = repo.Append(ctx, Event{WorkspaceSID: "WS1", Type: EventTypeAction, CreatedAt: now})
	_ = repo.Append(ctx, Event{WorkspaceSID: "WS1", Type: EventTypeAttribution, CreatedAt: now.Add(2 * time.Hour)})

	got, err := repo.ListAttributions(ctx, "WS1", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if _, err := repo.ListAttributions(ctx, "", now, now); err == nil {
		t.Fatalf("expected error for empty workspace")
	}
}
