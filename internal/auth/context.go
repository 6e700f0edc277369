package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxWorkerSID ctxKey = iota
	ctxWorkspaceSID
	ctxRole
)

func WithIdentity(ctx context.Context, workerSID, workspaceSID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxWorkerSID, workerSID)
	ctx = context.WithValue(ctx, ctxWorkspaceSID, workspaceSID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func WorkerSID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxWorkerSID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("worker_sid not in context")
}

func WorkspaceSID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxWorkspaceSID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("workspace_sid not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
