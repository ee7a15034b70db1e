package bridge

import (
	"context"
	"sync"
)

type call struct {
	ctx   context.Context
	msg   Message
	reply chan Reply
}

// LocalPort connects an unprivileged component to a Gateway living in the
// same process. Every call carries its own reply channel and is served on
// its own goroutine.
type LocalPort struct {
	calls chan call
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewLocalPort starts serving g and returns the port.
func NewLocalPort(g *Gateway) *LocalPort {
	p := &LocalPort{
		calls: make(chan call),
		done:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.serve(g)
	return p
}

func (p *LocalPort) serve(g *Gateway) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case c := <-p.calls:
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				c.reply <- g.Handle(c.ctx, c.msg)
			}()
		}
	}
}

// Send delivers msg and waits for its reply.
func (p *LocalPort) Send(ctx context.Context, msg Message) (Reply, error) {
	c := call{ctx: ctx, msg: msg, reply: make(chan Reply, 1)}
	select {
	case <-p.done:
		return Reply{}, ErrClosed
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case p.calls <- c:
	}

	select {
	case r := <-c.reply:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Close stops accepting calls and waits for in-flight ones to finish.
func (p *LocalPort) Close() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}
