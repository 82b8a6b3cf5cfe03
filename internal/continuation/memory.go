package continuation

import (
	"context"
	"sync"
)

// MemoryStore keeps tokens in process memory. Tokens do not survive a
// restart; use it for local development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]Token)}
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, token Token) error {
	if err := validate(token); err != nil {
		return err
	}
	s.mu.Lock()
	s.tokens[sessionID] = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (Token, error) {
	s.mu.RLock()
	token, ok := s.tokens[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Token{}, notFound(sessionID)
	}
	return token, nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.tokens, sessionID)
	s.mu.Unlock()
	return nil
}
