package bus

import (
	"context"

	"github.com/yungbote/completion-engine/internal/realtime"
)

// Bus carries progress events between processes. StartForwarder delivers every
// published message to onMsg until ctx ends.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
