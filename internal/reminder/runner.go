package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskr-api/internal/config"
	"github.com/phrazzld/taskr-api/internal/domain"
	"github.com/phrazzld/taskr-api/internal/metrics"
	"github.com/phrazzld/taskr-api/internal/notify"
	"github.com/phrazzld/taskr-api/internal/redact"
	"github.com/phrazzld/taskr-api/internal/store"
)

// stateUpdateTimeout bounds a single reminder state write.
const stateUpdateTimeout = 5 * time.Second

// RunnerConfig holds configuration for the reminder runner
type RunnerConfig struct {
	// WorkerCount determines how many reminders are delivered concurrently
	WorkerCount int

	// QueueSize is the buffer between the poller and the workers. The poller
	// never claims more reminders than the queue has room for.
	QueueSize int

	// BatchSize caps how many reminders one poll claims
	BatchSize int

	// PollInterval is how often the store is checked for due reminders
	PollInterval time.Duration

	// StuckAge defines how long a reminder can stay in processing state
	// before it's considered stuck and reset. It must exceed DeliveryTimeout
	// plus the time to record the outcome; NewRunner raises it otherwise.
	StuckAge time.Duration

	// StuckCheckInterval defines how often to check for stuck reminders
	// If zero, defaults to StuckAge / 2
	StuckCheckInterval time.Duration

	// DeliveryTimeout bounds a single notifier call
	// If zero, defaults to 30 seconds
	DeliveryTimeout time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:        2,
		QueueSize:          100,
		BatchSize:          50,
		PollInterval:       5 * time.Second,
		StuckAge:           10 * time.Minute,
		StuckCheckInterval: 5 * time.Minute,
		DeliveryTimeout:    30 * time.Second,
	}
}

// RunnerConfigFromConfig maps application configuration onto a RunnerConfig.
func RunnerConfigFromConfig(cfg config.ReminderConfig) RunnerConfig {
	rc := DefaultRunnerConfig()
	rc.WorkerCount = cfg.WorkerCount
	rc.QueueSize = cfg.QueueSize
	rc.BatchSize = cfg.BatchSize
	rc.PollInterval = cfg.PollInterval
	rc.StuckAge = cfg.StuckAge
	rc.DeliveryTimeout = cfg.DeliveryTimeout
	rc.StuckCheckInterval = 0
	return rc
}

// Runner polls for due reminders and delivers them
type Runner struct {
	store    store.ReminderStore
	notifier notify.Notifier
	queue    chan *domain.Reminder
	wake     chan struct{}
	config   RunnerConfig
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	started    bool
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

var _ Waker = (*Runner)(nil)

// NewRunner creates a new Runner
func NewRunner(
	reminderStore store.ReminderStore,
	notifier notify.Notifier,
	config RunnerConfig,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "reminder_runner"))

	defaults := DefaultRunnerConfig()
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", defaults.WorkerCount)
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.StuckAge <= 0 {
		config.StuckAge = defaults.StuckAge
	}
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = defaults.DeliveryTimeout
	}
	if minStuck := config.DeliveryTimeout + stateUpdateTimeout; config.StuckAge <= minStuck {
		logger.Warn("stuck age does not exceed delivery timeout, raising it",
			"specified_stuck_age", config.StuckAge,
			"delivery_timeout", config.DeliveryTimeout,
			"stuck_age", 2*minStuck)
		config.StuckAge = 2 * minStuck
	}
	if config.StuckCheckInterval <= 0 {
		config.StuckCheckInterval = config.StuckAge / 2
	}

	return &Runner{
		store:    reminderStore,
		notifier: notifier,
		queue:    make(chan *domain.Reminder, config.QueueSize),
		wake:     make(chan struct{}, 1),
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Wake triggers an immediate poll. It never blocks.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start recovers stuck reminders and begins polling and delivering.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("reminder runner already started")
	}

	r.ctx, r.cancelFunc = context.WithCancel(context.Background())

	// Recover reminders abandoned by a previous run
	if _, err := r.resetStuck(r.ctx); err != nil {
		r.cancelFunc()
		return fmt.Errorf("failed to recover reminders: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.poller()

	r.wg.Add(1)
	go r.stuckReminderMonitor()

	r.started = true
	r.logger.Info("reminder runner started",
		"worker_count", r.config.WorkerCount,
		"poll_interval", r.config.PollInterval.String())
	return nil
}

// Stop gracefully shuts down the runner. In-flight deliveries finish first;
// reminders claimed but not yet delivered are returned to pending.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}

	r.cancelFunc()
	r.wg.Wait()

	for {
		select {
		case reminder := <-r.queue:
			r.release(reminder)
		default:
			r.started = false
			r.logger.Info("reminder runner stopped")
			return
		}
	}
}

// release returns a claimed but undelivered reminder to pending.
func (r *Runner) release(reminder *domain.Reminder) {
	if err := r.recordState(reminder, domain.ReminderStatePending, ""); err != nil {
		r.logger.Error("failed to release claimed reminder",
			"reminder_id", reminder.ID,
			"error", redact.Error(err))
	}
}

// recordState writes a reminder state on its own context, detached from the
// runner and from any delivery deadline.
func (r *Runner) recordState(reminder *domain.Reminder, state domain.ReminderState, errorMsg string) error {
	ctx, cancel := context.WithTimeout(context.Background(), stateUpdateTimeout)
	defer cancel()

	return r.store.UpdateState(ctx, reminder.ID, state, errorMsg)
}

// poller claims due reminders on every tick or wake-up and queues them.
func (r *Runner) poller() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		r.poll()

		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// poll claims one batch of due reminders and queues them for the workers.
// It returns the number of reminders queued.
func (r *Runner) poll() int {
	limit := min(r.config.BatchSize, cap(r.queue)-len(r.queue))
	if limit <= 0 {
		return 0
	}

	claimed, err := r.store.ClaimDue(r.ctx, r.now().UTC(), limit)
	if err != nil {
		if r.ctx.Err() == nil {
			r.logger.Error("failed to claim due reminders", "error", err)
		}
		return 0
	}

	for i, reminder := range claimed {
		select {
		case r.queue <- reminder:
		case <-r.ctx.Done():
			for _, rest := range claimed[i:] {
				r.release(rest)
			}
			return i
		}
	}

	if len(claimed) > 0 {
		r.logger.Debug("queued due reminders", "count", len(claimed))
	}
	return len(claimed)
}

// worker delivers reminders from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case reminder := <-r.queue:
			r.deliver(reminder, id)
		}
	}
}

// deliver sends one reminder and records the outcome. Failures are terminal.
func (r *Runner) deliver(reminder *domain.Reminder, workerID int) {
	log := r.logger.With(
		"reminder_id", reminder.ID,
		"task_id", reminder.Payload.TaskID,
		"worker_id", workerID,
	)

	metrics.ReminderDispatchLag.Observe(r.now().Sub(reminder.FireAt).Seconds())

	if err := r.notify(reminder); err != nil {
		log.Error("reminder delivery failed", "error", redact.Error(err))
		metrics.RemindersDispatched.WithLabelValues(string(domain.ReminderStateFailed)).Inc()
		if updateErr := r.recordState(reminder, domain.ReminderStateFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark reminder failed", "error", redact.Error(updateErr))
		}
		return
	}

	log.Info("reminder delivered")
	metrics.RemindersDispatched.WithLabelValues(string(domain.ReminderStateSent)).Inc()
	if err := r.recordState(reminder, domain.ReminderStateSent, ""); err != nil {
		log.Error("failed to mark reminder sent", "error", redact.Error(err))
	}
}

// notify hands the payload to the notifier under the delivery timeout.
// Delivery is not tied to the runner context so Stop lets it finish.
func (r *Runner) notify(reminder *domain.Reminder) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.DeliveryTimeout)
	defer cancel()

	return r.notifier.Notify(ctx, reminder.Payload)
}

// stuckReminderMonitor periodically returns reminders that have been in
// processing state for too long to pending.
func (r *Runner) stuckReminderMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			n, err := r.resetStuck(r.ctx)
			if err != nil {
				if r.ctx.Err() == nil {
					r.logger.Error("failed to reset stuck reminders", "error", err)
				}
				continue
			}
			if n > 0 {
				r.Wake()
			}
		}
	}
}

func (r *Runner) resetStuck(ctx context.Context) (int, error) {
	n, err := r.store.ResetStuck(ctx, r.config.StuckAge)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.RemindersReset.Add(float64(n))
		r.logger.Info("reset stuck reminders", "count", n)
	}
	return n, nil
}
