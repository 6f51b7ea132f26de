package models

import (
	"encoding/json"
	"time"
)

// OfflineActionType identifies the mutation an offline action carries.
type OfflineActionType string

const (
	ActionCreate      OfflineActionType = "create"
	ActionUpdate      OfflineActionType = "update"
	ActionDelete      OfflineActionType = "delete"
	ActionAdjustStock OfflineActionType = "adjust_stock"
)

// OfflineAction is a pending mutation queued while the remote backend is
// unreachable. Retry count increments on each failed sync attempt; an action
// that accumulates the configured failure budget is moved off the pending
// list into the failed list.
type OfflineAction struct {
	ID         string            `json:"id"`
	Type       OfflineActionType `json:"type"`
	Entity     string            `json:"entity"`
	Payload    json.RawMessage   `json:"payload"`
	Timestamp  time.Time         `json:"timestamp"`
	RetryCount int               `json:"retry_count"`
	LastError  string            `json:"last_error,omitempty"`
}

// QueueStatus is the observable state of the offline queue.
type QueueStatus struct {
	Online       bool       `json:"online"`
	PendingCount int        `json:"pending_count"`
	FailedCount  int        `json:"failed_count"`
	DroppedCount int        `json:"dropped_count"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}
