package worker

import (
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// HandlerFunc processes one delivery. A returned error sends the delivery to
// the dead-letter queue; it is never redelivered to the pool.
type HandlerFunc func(delivery amqp.Delivery) error

// Pool fans deliveries out to a bounded set of goroutines.
type Pool struct {
	workers int
	handler HandlerFunc
	log     *zap.SugaredLogger

	jobs chan amqp.Delivery
	wg   sync.WaitGroup
}

func NewPool(workers int, handler HandlerFunc, log *zap.SugaredLogger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		handler: handler,
		log:     log,
		jobs:    make(chan amqp.Delivery, workers),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.log.Infow("worker pool started", "workers", p.workers)
}

func (p *Pool) run() {
	defer p.wg.Done()
	for msg := range p.jobs {
		if err := p.handler(msg); err != nil {
			p.log.Errorw("event processing failed", "error", err)
			_ = msg.Reject(false) // dead-letter
			continue
		}
		_ = msg.Ack(false)
	}
}

// Submit hands a delivery to the pool; blocks when all workers are busy.
func (p *Pool) Submit(msg amqp.Delivery) {
	p.jobs <- msg
}

// Stop drains in-flight work and waits for the workers to exit.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}
