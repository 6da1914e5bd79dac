package ssap

import (
	"sync"

	"github.com/webos-remote/lgtv-go/pkg/wire"
)

// pendingReplies tracks requests awaiting a reply with a matching id.
type pendingReplies struct {
	mu      sync.Mutex
	waiting map[wire.ID]chan *wire.Message
	closed  bool
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{waiting: make(map[wire.ID]chan *wire.Message)}
}

// register returns the channel that receives the reply to id. After
// closeAll the returned channel is already closed.
func (p *pendingReplies) register(id wire.ID) <-chan *wire.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan *wire.Message, 1)
	if p.closed {
		close(ch)
		return ch
	}
	p.waiting[id] = ch
	return ch
}

func (p *pendingReplies) remove(id wire.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.waiting, id)
}

// deliver hands msg to the request waiting for it. It reports whether
// anyone was waiting.
func (p *pendingReplies) deliver(msg *wire.Message) bool {
	if msg.Type != wire.TypeResponse && msg.Type != wire.TypeError {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.waiting[msg.ID]
	if !ok {
		return false
	}
	delete(p.waiting, msg.ID)
	ch <- msg
	return true
}

// closeAll wakes every waiter with a closed channel.
func (p *pendingReplies) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for id, ch := range p.waiting {
		close(ch)
		delete(p.waiting, id)
	}
}

func (p *pendingReplies) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}
