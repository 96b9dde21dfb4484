package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/completion-engine/internal/realtime"
)

// localBus delivers messages in-process. It is used when Redis is not
// configured, so a single instance still streams events to its own clients.
type localBus struct {
	mu        sync.RWMutex
	forwarder []func(realtime.Message)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(ctx context.Context, msg realtime.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.forwarder {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.forwarder = append(b.forwarder, onMsg)
	idx := len(b.forwarder) - 1
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.forwarder[idx] = func(realtime.Message) {}
		b.mu.Unlock()
	}()
	return nil
}

func (b *localBus) Close() error { return nil }
