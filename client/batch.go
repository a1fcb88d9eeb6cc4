package client

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/adamwoolhether/reqflow/response"
)

// Batch runs downloads in the background, at most maxConcurrent at a
// time. Create one with [Client.Batch].
type Batch struct {
	c        *Client
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     *multierror.Error
}

// Batch creates a Batch bound to c. If maxConcurrent <= 0, concurrency
// is unlimited.
func (c *Client) Batch(maxConcurrent int) *Batch {
	b := &Batch{c: c}
	if maxConcurrent > 0 {
		b.sem = make(chan struct{}, maxConcurrent)
	}

	return b
}

// Pending tracks a single download started by [Batch.Download].
type Pending struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Done returns a channel that is closed when the download completes.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err blocks until the download completes and returns its error.
func (p *Pending) Err() error {
	<-p.done
	return p.err
}

// Cancel cancels the download's context.
func (p *Pending) Cancel() { p.cancel() }

// Download queues a [Client.Download] of req into destPath. Errors,
// including validation errors, are reported by the Pending and by
// [Batch.Wait].
func (b *Batch) Download(req *http.Request, expCode int, destPath string, opts ...response.SaveOption) *Pending {
	if req == nil || destPath == "" {
		err := b.c.Download(req, expCode, destPath)
		b.recordErr(err)

		done := make(chan struct{})
		close(done)
		return &Pending{done: done, err: err, cancel: func() {}}
	}

	ctx, cancel := context.WithCancel(req.Context())
	p := &Pending{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	b.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(p.done)
			b.wg.Done()
		}()

		if b.sem != nil {
			select {
			case b.sem <- struct{}{}:
				defer func() {
					<-b.sem
				}()
			case <-ctx.Done():
				p.err = ctx.Err()
				b.recordErr(p.err)
				return
			}
		}

		if b.shutdown.Load() {
			p.err = ErrBatchShutdown
			b.recordErr(p.err)
			return
		}

		p.err = b.c.Download(req.WithContext(ctx), expCode, destPath, opts...)
		if p.err != nil {
			b.recordErr(p.err)
		}
	}()

	return p
}

// Wait blocks until every queued download completes and returns their
// errors combined.
func (b *Batch) Wait() error {
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.errs.ErrorOrNil()
}

// Shutdown makes downloads that have not started yet fail with
// ErrBatchShutdown.
func (b *Batch) Shutdown() {
	b.shutdown.Store(true)
}

func (b *Batch) recordErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = multierror.Append(b.errs, err)
}
