package audit

import (
	"context"
	"sync"
	"time"

	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

// Worker drains the audit queue into OpenSearch. Multiple workers poll
// concurrently; each message is acked only after a successful index so
// failures are retried by the queue.
type Worker struct {
	publisher    *SQSPublisher
	indexer      *Indexer
	log          *logger.Logger
	workerCount  int
	pollInterval time.Duration
	maxMessages  int32
	waitTime     int32
	shutdownChan chan struct{}
	waitGroup    sync.WaitGroup
}

func NewWorker(publisher *SQSPublisher, indexer *Indexer, log *logger.Logger, workerCount int, pollInterval time.Duration) *Worker {
	if workerCount <= 0 {
		workerCount = 2
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		publisher:    publisher,
		indexer:      indexer,
		log:          log,
		workerCount:  workerCount,
		pollInterval: pollInterval,
		maxMessages:  10,
		waitTime:     20,
		shutdownChan: make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.log.Info("starting audit workers")
	for i := 0; i < w.workerCount; i++ {
		w.waitGroup.Add(1)
		go w.run(i)
	}
}

func (w *Worker) Stop() {
	close(w.shutdownChan)
	w.waitGroup.Wait()
	w.log.Info("all audit workers stopped")
}

func (w *Worker) run(id int) {
	defer w.waitGroup.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdownChan:
			w.log.Infof("audit worker %d shutting down", id)
			return
		case <-ticker.C:
			if err := w.processBatch(context.Background()); err != nil {
				w.log.Errorf("audit worker %d: %v", id, err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	received, err := w.publisher.Receive(ctx, w.maxMessages, w.waitTime)
	if err != nil {
		return err
	}

	for _, msg := range received {
		if err := w.indexer.Index(ctx, msg.Event); err != nil {
			w.log.Errorf("index audit event %s: %v", msg.Event.ID, err)
			continue
		}
		if err := w.publisher.Ack(ctx, msg.ReceiptHandle); err != nil {
			w.log.Errorf("ack audit event %s: %v", msg.Event.ID, err)
		}
	}
	return nil
}
