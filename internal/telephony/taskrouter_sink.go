package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// TaskAttributesAPI is the slice of Provider the sink uses.
type TaskAttributesAPI interface {
	FetchTask(ctx context.Context, taskSID string) (TaskRecord, error)
	UpdateTaskAttributes(ctx context.Context, req UpdateTaskAttributesRequest) error
}

// TaskRouterSink merges attribute patches onto the permanent task record.
//
// The platform only supports whole-object replacement, so the sink fetches the
// current attributes, deep-merges the patch and writes back with If-Match on the
// fetched revision. No retries: a concurrent write surfaces as ErrPreconditionFailed.
type TaskRouterSink struct {
	API TaskAttributesAPI
}

func NewTaskRouterSink(api TaskAttributesAPI) TaskRouterSink {
	return TaskRouterSink{API: api}
}

func (s TaskRouterSink) UpdateAttributes(ctx context.Context, taskSID string, patch map[string]any) error {
	if s.API == nil {
		return errors.New("telephony: task api not configured")
	}
	rec, err := s.API.FetchTask(ctx, taskSID)
	if err != nil {
		return fmt.Errorf("fetch task %s: %w", taskSID, err)
	}

	current := map[string]any{}
	if rec.Attributes != "" {
		if err := json.Unmarshal([]byte(rec.Attributes), &current); err != nil {
			return fmt.Errorf("decode attributes of %s: %w", taskSID, err)
		}
	}

	merged, err := json.Marshal(MergeAttributes(current, patch))
	if err != nil {
		return err
	}
	return s.API.UpdateTaskAttributes(ctx, UpdateTaskAttributesRequest{
		TaskSID:    taskSID,
		Attributes: string(merged),
		IfMatch:    rec.Revision,
	})
}

// MergeAttributes deep-merges patch into dst and returns dst.
// Nested objects merge key by key; any other value in patch replaces the old one.
func MergeAttributes(dst, patch map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, pv := range patch {
		pm, patchIsObj := pv.(map[string]any)
		dm, dstIsObj := dst[k].(map[string]any)
		if patchIsObj && dstIsObj {
			dst[k] = MergeAttributes(dm, pm)
			continue
		}
		if patchIsObj {
			dst[k] = MergeAttributes(map[string]any{}, pm)
			continue
		}
		dst[k] = pv
	}
	return dst
}
