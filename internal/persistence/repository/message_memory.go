package repository

import (
	"context"
	"sync"

	"github.com/hilthontt/teamrelay/internal/domain"
)

type MemoryMessageLog struct {
	mu       sync.Mutex
	messages []domain.Message
}

func NewMemoryMessageLog() *MemoryMessageLog {
	return &MemoryMessageLog{}
}

func (l *MemoryMessageLog) Append(_ context.Context, message *domain.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, *message)
	return nil
}

// Messages returns a copy of every appended message in append order.
func (l *MemoryMessageLog) Messages() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}
