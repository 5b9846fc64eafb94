package node

import (
	"context"
	"sync"
)

// workerPool runs CPU-heavy work (large polygon covers, block scans) off
// the reactor's single goroutine. Workers never touch the registry,
// connection pool, or coordinator table directly — a job's result is
// fed back in by whoever submitted it, typically by re-emitting a
// reactor.Event. Grounded in shape on pkg/listener's channel-consumer
// loop, generalized from one consumer to a fixed-size pool of them.
type workerPool struct {
	jobs chan func()
	size int
	wg   sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	return &workerPool{jobs: make(chan func(), size*4), size: size}
}

func (p *workerPool) start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					job()
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

// submit enqueues job to run on a worker goroutine. It blocks if every
// worker is busy and the queue is full, applying backpressure rather than
// growing unbounded.
func (p *workerPool) submit(job func()) {
	p.jobs <- job
}

func (p *workerPool) stop() {
	close(p.jobs)
	p.wg.Wait()
}
