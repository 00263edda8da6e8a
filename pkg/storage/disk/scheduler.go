package disk

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Request is one enqueued unit of page I/O. Callers wait on Done for
// the result rather than blocking the scheduling call itself.
type Request struct {
	IsWrite bool
	Buffer  []byte
	PageID  PageID
	Done    chan bool
}

// Scheduler serializes asynchronous page I/O onto a single background
// worker, matching spec.md §4.1: a thread-safe blocking queue drained
// FIFO by exactly one goroutine, synchronously against the Manager.
// Grounded on the shape of the teacher's PageStore (single-writer disk
// access under a mutex) generalized into an explicit request queue per
// the original disk_scheduler.cpp design.
type Scheduler struct {
	manager *Manager
	queue   chan *Request
	done    chan struct{}
	log     *logrus.Logger
}

func NewScheduler(manager *Manager, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Scheduler{
		manager: manager,
		queue:   make(chan *Request, 128),
		done:    make(chan struct{}),
		log:     log,
	}
	go s.workerLoop()
	return s
}

// Schedule enqueues a request without blocking on its completion. The
// caller reads req.Done to learn success/failure.
func (s *Scheduler) Schedule(req *Request) {
	s.queue <- req
}

// Destroy enqueues the shutdown sentinel and waits for the worker to
// drain every in-flight request before returning.
func (s *Scheduler) Destroy() {
	close(s.queue)
	<-s.done
}

func (s *Scheduler) workerLoop() {
	defer close(s.done)
	for req := range s.queue {
		var err error
		if req.IsWrite {
			err = s.manager.WritePage(req.PageID, req.Buffer)
		} else {
			err = s.manager.ReadPage(req.PageID, req.Buffer)
		}
		if err != nil {
			s.log.WithError(err).WithField("page_id", req.PageID).Error("disk scheduler: I/O failed")
		}
		req.Done <- err == nil
	}
}

// ReadPageSync is a convenience wrapper for callers (like the buffer
// pool) that want to pipeline a single read/write and immediately wait
// on it, without hand-rolling the channel dance at every call site.
func (s *Scheduler) ReadPageSync(id PageID, buf []byte) error {
	req := &Request{IsWrite: false, Buffer: buf, PageID: id, Done: make(chan bool, 1)}
	s.Schedule(req)
	if ok := <-req.Done; !ok {
		return fmt.Errorf("disk scheduler: read of page %d failed", id)
	}
	return nil
}

// AllocatePageID hands out a fresh page id from the underlying manager.
func (s *Scheduler) AllocatePageID() PageID {
	return s.manager.AllocatePage()
}

func (s *Scheduler) WritePageSync(id PageID, buf []byte) error {
	req := &Request{IsWrite: true, Buffer: buf, PageID: id, Done: make(chan bool, 1)}
	s.Schedule(req)
	if ok := <-req.Done; !ok {
		return fmt.Errorf("disk scheduler: write of page %d failed", id)
	}
	return nil
}
