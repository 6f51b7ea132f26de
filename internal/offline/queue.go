package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"retail-intel/internal/cache"
	"retail-intel/internal/config"
	"retail-intel/internal/models"
)

// Executor applies a queued action against the remote backend during a
// sync pass.
type Executor interface {
	Execute(ctx context.Context, action models.OfflineAction) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, action models.OfflineAction) error

func (f ExecutorFunc) Execute(ctx context.Context, action models.OfflineAction) error {
	return f(ctx, action)
}

// queueState is the persisted form of the queue. Pending actions replay in
// enqueue order; failed actions exhausted their retry budget and stay
// inspectable until cleared.
type queueState struct {
	Pending    []models.OfflineAction `json:"pending"`
	Failed     []models.OfflineAction `json:"failed"`
	Dropped    int                    `json:"dropped"`
	LastSyncAt *time.Time             `json:"last_sync_at,omitempty"`
}

// Queue buffers mutations while the backend is unreachable and replays
// them in order once connectivity returns. State survives restarts through
// the persistent store.
type Queue struct {
	logger      *zap.Logger
	store       cache.PersistentStore
	monitor     ConnectivityMonitor
	exec        Executor
	storeKey    string
	storeTTL    time.Duration
	interval    time.Duration
	maxRetries  int
	execTimeout time.Duration
	now         func() time.Time

	mu        sync.Mutex
	state     queueState
	syncing   bool
	listeners []func(models.QueueStatus)
	onSync    func(trigger string)

	stop     chan struct{}
	stopOnce sync.Once
}

// NewQueue creates the queue and restores any persisted state.
func NewQueue(cfg *config.SyncConfig, store cache.PersistentStore, monitor ConnectivityMonitor, exec Executor, logger *zap.Logger) *Queue {
	q := &Queue{
		logger:      logger,
		store:       store,
		monitor:     monitor,
		exec:        exec,
		storeKey:    "offline:queue",
		storeTTL:    30 * 24 * time.Hour,
		interval:    30 * time.Second,
		maxRetries:  3,
		execTimeout: 10 * time.Second,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	if cfg != nil {
		if cfg.StoreKey != "" {
			q.storeKey = cfg.StoreKey
		}
		if cfg.StoreTTL > 0 {
			q.storeTTL = cfg.StoreTTL
		}
		if cfg.Interval > 0 {
			q.interval = cfg.Interval
		}
		if cfg.MaxRetries > 0 {
			q.maxRetries = cfg.MaxRetries
		}
		if cfg.ExecTimeout > 0 {
			q.execTimeout = cfg.ExecTimeout
		}
	}
	q.restore()
	return q
}

// restore loads persisted queue state. A missing or malformed record
// starts the queue empty.
func (q *Queue) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := q.store.Get(ctx, q.storeKey)
	if err != nil {
		q.logger.Warn("failed to restore offline queue", zap.Error(err))
		return
	}
	if data == nil {
		return
	}

	var state queueState
	if err := json.Unmarshal(data, &state); err != nil {
		q.logger.Warn("discarding malformed offline queue state", zap.Error(err))
		return
	}

	q.mu.Lock()
	q.state = state
	q.mu.Unlock()

	if len(state.Pending) > 0 || len(state.Failed) > 0 {
		q.logger.Info("offline queue restored",
			zap.Int("pending", len(state.Pending)),
			zap.Int("failed", len(state.Failed)))
	}
}

// persist writes the current state. Callers must hold q.mu.
func (q *Queue) persistLocked(ctx context.Context) {
	data, err := json.Marshal(q.state)
	if err != nil {
		q.logger.Error("failed to marshal offline queue state", zap.Error(err))
		return
	}
	if err := q.store.Set(ctx, q.storeKey, data, q.storeTTL); err != nil {
		q.logger.Warn("failed to persist offline queue state", zap.Error(err))
	}
}

// Start subscribes to connectivity transitions and runs the periodic sync
// loop. Stop it with Close.
func (q *Queue) Start() {
	q.monitor.Subscribe(func(online bool) {
		if online {
			q.logger.Info("connectivity restored, syncing offline queue")
			go q.sync(context.Background(), "reconnect")
		} else {
			q.logger.Info("connectivity lost, buffering mutations")
			q.notify()
		}
	})

	go func() {
		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q.monitor.Online() && q.pendingCount() > 0 {
					q.sync(context.Background(), "interval")
				}
			case <-q.stop:
				return
			}
		}
	}()
}

// Close stops the sync loop.
func (q *Queue) Close() error {
	q.stopOnce.Do(func() { close(q.stop) })
	return nil
}

// Execute applies the mutation immediately when online, falling back to the
// queue when offline or when the immediate attempt fails. It reports
// whether the action was queued rather than applied.
func (q *Queue) Execute(ctx context.Context, typ models.OfflineActionType, entity string, payload json.RawMessage) (bool, error) {
	if q.monitor.Online() {
		action := models.OfflineAction{
			ID:        uuid.New().String(),
			Type:      typ,
			Entity:    entity,
			Payload:   payload,
			Timestamp: q.now(),
		}
		execCtx, cancel := context.WithTimeout(ctx, q.execTimeout)
		err := q.exec.Execute(execCtx, action)
		cancel()
		if err == nil {
			return false, nil
		}
		q.logger.Warn("immediate execution failed, queueing action",
			zap.Error(err),
			zap.String("entity", entity),
			zap.String("type", string(typ)))
	}

	_, err := q.Enqueue(ctx, typ, entity, payload)
	return true, err
}

// Enqueue appends an action to the pending list without attempting it.
func (q *Queue) Enqueue(ctx context.Context, typ models.OfflineActionType, entity string, payload json.RawMessage) (models.OfflineAction, error) {
	action := models.OfflineAction{
		ID:        uuid.New().String(),
		Type:      typ,
		Entity:    entity,
		Payload:   payload,
		Timestamp: q.now(),
	}

	q.mu.Lock()
	q.state.Pending = append(q.state.Pending, action)
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.logger.Debug("action queued",
		zap.String("id", action.ID),
		zap.String("entity", entity),
		zap.String("type", string(typ)))

	q.notify()
	return action, nil
}

// Sync replays pending actions in order. Each action gets one attempt per
// pass; an action that reaches the retry budget moves to the failed list.
// Concurrent calls collapse into the running pass.
func (q *Queue) Sync(ctx context.Context) {
	q.sync(ctx, "manual")
}

func (q *Queue) sync(ctx context.Context, trigger string) {
	q.mu.Lock()
	if q.syncing {
		q.mu.Unlock()
		return
	}
	q.syncing = true
	hook := q.onSync
	pending := make([]models.OfflineAction, len(q.state.Pending))
	copy(pending, q.state.Pending)
	q.mu.Unlock()

	if hook != nil {
		hook(trigger)
	}

	defer func() {
		q.mu.Lock()
		q.syncing = false
		q.mu.Unlock()
	}()

	if len(pending) == 0 {
		q.markSynced(ctx)
		return
	}

	q.logger.Info("syncing offline queue", zap.Int("pending", len(pending)))

	var remaining, failed []models.OfflineAction
	synced := 0
	for _, action := range pending {
		execCtx, cancel := context.WithTimeout(ctx, q.execTimeout)
		err := q.exec.Execute(execCtx, action)
		cancel()

		if err == nil {
			synced++
			continue
		}

		action.RetryCount++
		action.LastError = err.Error()
		if action.RetryCount >= q.maxRetries {
			q.logger.Warn("action exhausted retry budget",
				zap.String("id", action.ID),
				zap.String("entity", action.Entity),
				zap.String("type", string(action.Type)),
				zap.Int("retries", action.RetryCount),
				zap.String("last_error", action.LastError))
			failed = append(failed, action)
		} else {
			remaining = append(remaining, action)
		}
	}

	now := q.now()
	q.mu.Lock()
	// Actions enqueued during the pass sit after the copied slice.
	q.state.Pending = append(remaining, q.state.Pending[len(pending):]...)
	q.state.Failed = append(q.state.Failed, failed...)
	q.state.LastSyncAt = &now
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.logger.Info("offline queue sync completed",
		zap.Int("synced", synced),
		zap.Int("retrying", len(remaining)),
		zap.Int("failed", len(failed)))

	q.notify()
}

// ForceSync runs a sync pass regardless of the reported connectivity.
func (q *Queue) ForceSync(ctx context.Context) {
	q.sync(ctx, "forced")
}

func (q *Queue) markSynced(ctx context.Context) {
	now := q.now()
	q.mu.Lock()
	q.state.LastSyncAt = &now
	q.persistLocked(ctx)
	q.mu.Unlock()
	q.notify()
}

// Status reports the observable queue state.
func (q *Queue) Status() models.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return models.QueueStatus{
		Online:       q.monitor.Online(),
		PendingCount: len(q.state.Pending),
		FailedCount:  len(q.state.Failed),
		DroppedCount: q.state.Dropped,
		LastSyncAt:   q.state.LastSyncAt,
	}
}

// Pending returns a copy of the pending actions in enqueue order.
func (q *Queue) Pending() []models.OfflineAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.OfflineAction, len(q.state.Pending))
	copy(out, q.state.Pending)
	return out
}

// FailedActions returns a copy of the actions that exhausted their retry
// budget.
func (q *Queue) FailedActions() []models.OfflineAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.OfflineAction, len(q.state.Failed))
	copy(out, q.state.Failed)
	return out
}

// RetryFailed moves every failed action back onto the pending list with a
// fresh retry budget.
func (q *Queue) RetryFailed(ctx context.Context) int {
	q.mu.Lock()
	moved := len(q.state.Failed)
	for _, action := range q.state.Failed {
		action.RetryCount = 0
		action.LastError = ""
		q.state.Pending = append(q.state.Pending, action)
	}
	q.state.Failed = nil
	q.persistLocked(ctx)
	q.mu.Unlock()

	if moved > 0 {
		q.logger.Info("failed actions requeued", zap.Int("count", moved))
		q.notify()
	}
	return moved
}

// ClearFailed discards the failed-actions list. Discarded actions count
// toward the dropped total.
func (q *Queue) ClearFailed(ctx context.Context) int {
	q.mu.Lock()
	cleared := len(q.state.Failed)
	q.state.Failed = nil
	q.state.Dropped += cleared
	q.persistLocked(ctx)
	q.mu.Unlock()

	if cleared > 0 {
		q.notify()
	}
	return cleared
}

// Subscribe registers a listener invoked after every queue state change.
func (q *Queue) Subscribe(fn func(models.QueueStatus)) {
	q.mu.Lock()
	q.listeners = append(q.listeners, fn)
	q.mu.Unlock()
}

// OnSync registers a hook invoked once per sync pass with the trigger that
// started it. Set it before Start.
func (q *Queue) OnSync(fn func(trigger string)) {
	q.mu.Lock()
	q.onSync = fn
	q.mu.Unlock()
}

func (q *Queue) notify() {
	status := q.Status()
	q.mu.Lock()
	listeners := make([]func(models.QueueStatus), len(q.listeners))
	copy(listeners, q.listeners)
	q.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}

func (q *Queue) pendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.state.Pending)
}

// String renders a short queue summary for logs.
func (q *Queue) String() string {
	s := q.Status()
	return fmt.Sprintf("offline queue: online=%t pending=%d failed=%d", s.Online, s.PendingCount, s.FailedCount)
}
