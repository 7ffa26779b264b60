package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"threadly/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultSweepInterval is how often the graph symmetry sweep runs
	DefaultSweepInterval = 15 * time.Minute
)

// Manager orchestrates worker goroutines that consume from Redis Streams,
// plus a periodic sweep that re-derives follow graph symmetry even when no
// repair event was ever enqueued (e.g., the publish itself failed).
type Manager struct {
	consumer    queue.Consumer
	handler     *Handler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	sweepEvery  time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount   int           // Number of worker goroutines
	BatchSize     int64         // Messages per read
	BlockTimeout  time.Duration // Block time for XREADGROUP
	SweepInterval time.Duration // Graph symmetry sweep period
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:   DefaultWorkerCount,
		BatchSize:     DefaultBatchSize,
		BlockTimeout:  DefaultBlockTimeout,
		SweepInterval: DefaultSweepInterval,
	}
}

// NewManager creates a new worker manager.
func NewManager(consumer queue.Consumer, handler *Handler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		sweepEvery:  cfg.SweepInterval,
	}
}

// Start begins the worker goroutines.
// Call Stop() to gracefully shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	// Ensure consumer group exists
	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamSync, queue.ConsumerGroupSync); err != nil {
		return err
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s",
		m.workerCount, queue.StreamSync, queue.ConsumerGroupSync)

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		consumerName := consumerNameForWorker(workerID)

		m.wg.Add(1)
		go m.runWorker(workerID, consumerName)
	}

	m.wg.Add(1)
	go m.runSweep()

	log.Printf("[Manager] All %d workers started", m.workerCount)
	return nil
}

// Stop gracefully shuts down all workers.
// Blocks until all workers have finished.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

// runWorker is the main loop for a single worker goroutine.
func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumerName)

	// First, process any pending messages from previous runs (crash recovery)
	m.processPending(workerID, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Worker-%d] Shutting down", workerID)
			return
		default:
			m.processMessages(workerID, consumerName)
		}
	}
}

// runSweep periodically re-derives follow graph symmetry from scratch,
// catching edges whose repair event was itself lost.
func (m *Manager) runSweep() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()

	log.Printf("[Sweep] Started (every %v)", m.sweepEvery)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Sweep] Shutting down")
			return
		case <-ticker.C:
			if err := m.handler.SweepGraph(m.ctx); err != nil {
				log.Printf("[Sweep] FAILED: %v", err)
			}
		}
	}
}

// processPending handles messages that were delivered but not acknowledged.
// The replay is bounded: once a whole batch fails to ack, rereading would
// return the exact same batch, so the worker moves on to the main read loop
// instead of spinning on messages that are not making progress.
func (m *Manager) processPending(workerID int, consumerName string) {
	log.Printf("[Worker-%d] Checking for pending messages...", workerID)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamSync, queue.ConsumerGroupSync, consumerName, m.batchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", workerID, err)
			return
		}

		if len(messages) == 0 {
			log.Printf("[Worker-%d] No pending messages", workerID)
			return
		}

		log.Printf("[Worker-%d] Processing %d pending messages", workerID, len(messages))
		if acked := m.handleMessages(workerID, messages); acked == 0 {
			log.Printf("[Worker-%d] %d pending messages still failing, deferring replay to next startup", workerID, len(messages))
			return
		}
	}
}

// processMessages reads and handles a batch of messages.
func (m *Manager) processMessages(workerID int, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamSync,
		queue.ConsumerGroupSync,
		consumerName,
		m.batchSize,
		m.blockTime,
	)

	if err != nil {
		log.Printf("[Worker-%d] Error reading: %v", workerID, err)
		time.Sleep(time.Second) // Back off on error
		return
	}

	if len(messages) == 0 {
		return // Timeout, no messages
	}

	log.Printf("[Worker-%d] Received %d messages", workerID, len(messages))
	m.handleMessages(workerID, messages)
}

// handleMessages processes a batch of messages and acknowledges the ones
// that succeed. A failed message is NOT acked: the handlers are idempotent,
// so leaving it in the pending list and replaying on the next startup is
// safe and keeps snapshot propagation resumable. Terminal failures are the
// handler's job to classify (it returns nil for them, so they get acked).
// Returns how many messages were acked.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) int {
	acked := 0
	for _, msg := range messages {
		log.Printf("[Worker-%d] Processing msgID=%s type=%s", workerID, msg.ID, msg.Event.Type)

		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			log.Printf("[Worker-%d] Handler error msgID=%s: %v (left pending for replay)", workerID, msg.ID, err)
			continue
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamSync, queue.ConsumerGroupSync, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", workerID, msg.ID, err)
			continue
		}
		acked++
	}
	return acked
}

// consumerNameForWorker generates a unique consumer name for each worker.
func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}
