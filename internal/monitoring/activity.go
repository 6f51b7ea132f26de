package monitoring

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityEventType identifies what kind of operation an activity event
// records.
type ActivityEventType string

const (
	// Recommendation events
	EventRecommendationImplemented ActivityEventType = "recommendation_implemented"
	EventDashboardRefresh          ActivityEventType = "dashboard_refresh"

	// Offline queue events
	EventActionQueued        ActivityEventType = "action_queued"
	EventQueueSync           ActivityEventType = "queue_sync"
	EventFailedActionsRetry  ActivityEventType = "failed_actions_retry"
	EventFailedActionsClear  ActivityEventType = "failed_actions_clear"
	EventConnectivityChanged ActivityEventType = "connectivity_changed"

	// Data source events
	EventSourceModeChanged ActivityEventType = "source_mode_changed"
	EventSourceFallback    ActivityEventType = "source_fallback"
)

// ActivityEvent is a single recorded operation.
type ActivityEvent struct {
	ID          string                 `json:"id"`
	Type        ActivityEventType      `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	Status      string                 `json:"status"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// ActivityQuery filters recorded events.
type ActivityQuery struct {
	Since      *time.Time          `json:"since,omitempty"`
	EventTypes []ActivityEventType `json:"event_types,omitempty"`
	Status     string              `json:"status,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
}

// ActivitySummary aggregates a set of events.
type ActivitySummary struct {
	TotalEvents    int                       `json:"total_events"`
	EventsByType   map[ActivityEventType]int `json:"events_by_type"`
	EventsByStatus map[string]int            `json:"events_by_status"`
	FailureRate    float64                   `json:"failure_rate"`
}

// ActivityLog keeps a bounded in-memory trail of operator-visible
// operations. Events are buffered through a channel so recording never
// blocks a request; when the buffer is full the event is dropped with a
// warning rather than stalling the caller.
type ActivityLog struct {
	logger    *zap.Logger
	buffer    chan *ActivityEvent
	maxEvents int

	mu     sync.RWMutex
	events []*ActivityEvent

	closeOnce sync.Once
	done      chan struct{}
}

// NewActivityLog creates the log and starts its consumer.
func NewActivityLog(logger *zap.Logger) *ActivityLog {
	al := &ActivityLog{
		logger:    logger,
		buffer:    make(chan *ActivityEvent, 256),
		maxEvents: 1000,
		done:      make(chan struct{}),
	}

	go al.consume()

	return al
}

// Record appends an event. Status defaults to success when empty.
func (al *ActivityLog) Record(eventType ActivityEventType, description string, details map[string]interface{}) {
	al.RecordStatus(eventType, "success", description, details)
}

// RecordStatus appends an event with an explicit status.
func (al *ActivityLog) RecordStatus(eventType ActivityEventType, status, description string, details map[string]interface{}) {
	event := &ActivityEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now(),
		Status:      status,
		Description: description,
		Details:     details,
	}

	select {
	case al.buffer <- event:
	default:
		al.logger.Warn("activity buffer full, dropping event",
			zap.String("event_type", string(eventType)))
	}
}

// Query returns events matching the filter, newest first.
func (al *ActivityLog) Query(query *ActivityQuery) []*ActivityEvent {
	al.mu.RLock()
	defer al.mu.RUnlock()

	matched := make([]*ActivityEvent, 0)
	for i := len(al.events) - 1; i >= 0; i-- {
		event := al.events[i]
		if !matches(event, query) {
			continue
		}
		matched = append(matched, event)
		if query != nil && query.Limit > 0 && len(matched) >= query.Limit {
			break
		}
	}
	return matched
}

// Summary aggregates the events matching the filter.
func (al *ActivityLog) Summary(query *ActivityQuery) *ActivitySummary {
	events := al.Query(query)

	summary := &ActivitySummary{
		TotalEvents:    len(events),
		EventsByType:   make(map[ActivityEventType]int),
		EventsByStatus: make(map[string]int),
	}

	failures := 0
	for _, event := range events {
		summary.EventsByType[event.Type]++
		summary.EventsByStatus[event.Status]++
		if event.Status == "failure" {
			failures++
		}
	}

	if summary.TotalEvents > 0 {
		summary.FailureRate = float64(failures) / float64(summary.TotalEvents)
	}

	return summary
}

// Len reports how many events are retained.
func (al *ActivityLog) Len() int {
	al.mu.RLock()
	defer al.mu.RUnlock()
	return len(al.events)
}

// Flush waits until previously recorded events are visible to Query.
func (al *ActivityLog) Flush() {
	for {
		select {
		case event, ok := <-al.buffer:
			if !ok {
				return
			}
			al.store(event)
		default:
			return
		}
	}
}

// Close stops the consumer. Events recorded after Close are dropped.
func (al *ActivityLog) Close() error {
	al.closeOnce.Do(func() { close(al.done) })
	return nil
}

func (al *ActivityLog) consume() {
	for {
		select {
		case event := <-al.buffer:
			al.store(event)
		case <-al.done:
			return
		}
	}
}

func (al *ActivityLog) store(event *ActivityEvent) {
	al.mu.Lock()
	defer al.mu.Unlock()

	al.events = append(al.events, event)
	if len(al.events) > al.maxEvents {
		al.events = al.events[len(al.events)-al.maxEvents/2:]
	}
}

func matches(event *ActivityEvent, query *ActivityQuery) bool {
	if query == nil {
		return true
	}

	if query.Since != nil && event.Timestamp.Before(*query.Since) {
		return false
	}

	if query.Status != "" && event.Status != query.Status {
		return false
	}

	if len(query.EventTypes) > 0 {
		found := false
		for _, eventType := range query.EventTypes {
			if event.Type == eventType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}
