// Package worker runs the queue consumers: one long-poll loop per event
// type, each dispatching to a registered handler. Processing is at least
// once; every handler must survive seeing the same event twice.
package worker

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/billingd/internal/messaging"
	"github.com/ignite/billingd/internal/pkg/logger"
)

// Worker owns a set of consumers and runs them as one unit. A failure in one
// consumer's handler never affects the others; the worker stops only on
// context cancellation.
type Worker struct {
	consumers []*messaging.Consumer
	log       *logger.Logger
}

// New builds an empty worker. Consumers are attached with AddQueue.
func New(log *logger.Logger) *Worker {
	return &Worker{log: log}
}

// AddQueue attaches a consumer for one event type queue.
func (w *Worker) AddQueue(client *sqs.Client, cfg messaging.ConsumerConfig, registry *messaging.Registry, handler messaging.Handler) {
	w.consumers = append(w.consumers, messaging.NewConsumer(client, cfg, registry, handler, w.log))
}

// QueueCount reports how many queues the worker will consume.
func (w *Worker) QueueCount() int { return len(w.consumers) }

// Run starts every consumer and blocks until ctx is cancelled and all of
// them have drained their in-flight messages.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("worker starting", "queues", len(w.consumers))

	var wg sync.WaitGroup
	for _, c := range w.consumers {
		wg.Add(1)
		go func(c *messaging.Consumer) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}
	wg.Wait()

	w.log.Info("worker stopped")
}
