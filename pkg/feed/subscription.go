package feed

import "sync"

// Subscription is a finite, ordered stream of node-added batches. Its queue
// is unbounded so publishers never block on slow observers.
type Subscription struct {
	C <-chan Batch

	out    chan Batch
	mu     sync.Mutex
	queue  []Batch
	wake   chan struct{}
	stop   chan struct{}
	ended  bool
	once   sync.Once
	detach func()
}

func newSubscription() *Subscription {
	s := &Subscription{
		out:  make(chan Batch),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	s.C = s.out
	go s.pump()
	return s
}

func (s *Subscription) push(b Batch) {
	s.mu.Lock()
	s.queue = append(s.queue, b)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// finish lets the pump drain the queue and then close C.
func (s *Subscription) finish() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Unsubscribe ends the stream immediately, dropping queued batches.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		close(s.stop)
	})
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			ended := s.ended
			s.mu.Unlock()
			if ended {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-s.stop:
				return
			}
		}
		b := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- b:
		case <-s.stop:
			return
		}
	}
}
