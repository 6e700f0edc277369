package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"hangup-attribution/internal/hangupby"
)

type memTaskAPI struct {
	record    TaskRecord
	fetchErr  error
	updates   []UpdateTaskAttributesRequest
	updateErr error
}

func (m *memTaskAPI) FetchTask(ctx context.Context, taskSID string) (TaskRecord, error) {
	return m.record, m.fetchErr
}

func (m *memTaskAPI) UpdateTaskAttributes(ctx context.Context, req UpdateTaskAttributesRequest) error {
	m.updates = append(m.updates, req)
	return m.updateErr
}

func TestTaskRouterSink_ImplementsAttributeSink(t *testing.T) {
	var _ hangupby.AttributeSink = TaskRouterSink{}
}

func TestTaskRouterSink_MergesAndKeepsRevision(t *testing.T) {
	api := &memTaskAPI{record: TaskRecord{
		SID:        "WT1",
		Attributes: `{"conversations":{"conversation_attribute_1":"vip"},"conference":{"sid":"CF1"}}`,
		Revision:   "rev-3",
	}}
	sink := NewTaskRouterSink(api)

	if err := sink.UpdateAttributes(context.Background(), "WT1", hangupby.Patch(hangupby.Customer)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(api.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(api.updates))
	}
	u := api.updates[0]
	if u.IfMatch != "rev-3" {
		t.Fatalf("expected If-Match rev-3, got %q", u.IfMatch)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(u.Attributes), &got); err != nil {
		t.Fatalf("attributes not json: %v", err)
	}
	want := map[string]any{
		"conversations": map[string]any{"conversation_attribute_1": "vip", "hang_up_by": "Customer"},
		"conference":    map[string]any{"sid": "CF1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected merge:\n got %v\nwant %v", got, want)
	}
}

func TestTaskRouterSink_FetchErrorStopsUpdate(t *testing.T) {
	api := &memTaskAPI{fetchErr: ErrNotFound}
	err := NewTaskRouterSink(api).UpdateAttributes(context.Background(), "WT1", hangupby.Patch(hangupby.Agent))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(api.updates) != 0 {
		t.Fatalf("expected no update")
	}
}

func TestMergeAttributes_ReplacesScalarsAndNonObjects(t *testing.T) {
	dst := map[string]any{"a": 1.0, "b": map[string]any{"x": "1"}, "c": "str"}
	patch := map[string]any{"a": 2.0, "b": map[string]any{"y": "2"}, "c": map[string]any{"z": true}}

	got := MergeAttributes(dst, patch)
	want := map[string]any{"a": 2.0, "b": map[string]any{"x": "1", "y": "2"}, "c": map[string]any{"z": true}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
