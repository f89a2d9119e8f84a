package queuescheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ark-network/wager/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type task struct {
	at  int64
	seq uint64
	run func()
}

// taskQueue is a min-heap ordered by due time, then insertion order.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}
func (q taskQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *taskQueue) Push(x interface{}) { *q = append(*q, x.(*task)) }
func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// service runs one-shot tasks from a single timer loop.
type service struct {
	lock    sync.Mutex
	queue   taskQueue
	seq     uint64
	wakeup  chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	now     func() time.Time
}

func NewScheduler() ports.SchedulerService {
	return newScheduler(time.Now)
}

func newScheduler(now func() time.Time) *service {
	return &service{
		queue:  make(taskQueue, 0),
		wakeup: make(chan struct{}, 1),
		now:    now,
	}
}

func (s *service) Now() int64 {
	return s.now().Unix()
}

func (s *service) AfterNow(at int64) bool {
	return at > s.Now()
}

func (s *service) Start() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stopCh)
}

func (s *service) Stop() {
	s.lock.Lock()
	if !s.running {
		s.lock.Unlock()
		return
	}
	s.running = false
	s.queue = s.queue[:0]
	close(s.stopCh)
	s.lock.Unlock()

	s.wg.Wait()
}

func (s *service) ScheduleTaskOnce(at int64, run func()) error {
	if !s.AfterNow(at) {
		go run()
		return nil
	}

	s.lock.Lock()
	s.seq++
	heap.Push(&s.queue, &task{at: at, seq: s.seq, run: run})
	s.lock.Unlock()

	select {
	case s.wakeup <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of pending tasks.
func (s *service) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.queue)
}

func (s *service) loop(stopCh chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		for _, run := range s.popDue() {
			go run()
		}

		timer.Reset(s.nextDelay())
		select {
		case <-stopCh:
			return
		case <-s.wakeup:
		case <-timer.C:
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}
}

func (s *service) popDue() []func() {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now().Unix()
	due := make([]func(), 0)
	for len(s.queue) > 0 && s.queue[0].at <= now {
		due = append(due, heap.Pop(&s.queue).(*task).run)
	}
	if len(due) > 0 {
		log.Debugf("running %d due tasks", len(due))
	}
	return due
}

func (s *service) nextDelay() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.queue) <= 0 {
		return time.Hour
	}
	delay := time.Unix(s.queue[0].at, 0).Sub(s.now())
	if delay < 0 {
		return 0
	}
	return delay
}
