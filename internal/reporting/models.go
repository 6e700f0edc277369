package reporting

import (
	"time"

	"hangup-attribution/internal/hangupby"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// HangUpByRequest requests the attribution breakdown for a workspace.
// Workspace isolation: WorkspaceSID is required.
type HangUpByRequest struct {
	WorkspaceSID string    `json:"workspace_sid"`
	Range        TimeRange `json:"range"`
}

type HangUpBySummary struct {
	WorkspaceSID string    `json:"workspace_sid"`
	Range        TimeRange `json:"range"`

	Total int `json:"total"`

	// ByValue counts every evaluated wrap-up by its final value.
	ByValue map[hangupby.Value]int `json:"by_value"`

	CustomerInitiated int     `json:"customer_initiated"`
	CustomerShare     float64 `json:"customer_share"`

	// Unpersisted counts evaluations the task record never received.
	Unpersisted int `json:"unpersisted"`
}
