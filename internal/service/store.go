package service

import (
	"sync"

	"chatsync/internal/models"
)

// ConversationStore owns the ordered, newest-first message list for the
// active conversation. The subscription manager writes via Replace, the send
// pipeline via AppendOptimistic; the two sources are never merged by id — a
// later authoritative snapshot simply supersedes optimistic entries once the
// feed reflects the write.
type ConversationStore struct {
	mu       sync.RWMutex
	messages []models.Message
	version  uint64
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

// Replace atomically swaps the visible list with an authoritative snapshot.
// Last writer wins; nothing is carried over from the previous list.
func (s *ConversationStore) Replace(messages []models.Message) {
	snapshot := make([]models.Message, len(messages))
	copy(snapshot, messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = snapshot
	s.version++
}

// AppendOptimistic prepends locally authored messages ahead of the current
// list so the user sees them before server confirmation. Input order is
// preserved, with the first draft becoming the newest visible entry.
func (s *ConversationStore) AppendOptimistic(messages []models.Message) {
	if len(messages) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]models.Message, 0, len(messages)+len(s.messages))
	merged = append(merged, messages...)
	merged = append(merged, s.messages...)
	s.messages = merged
	s.version++
}

// Messages returns a copy of the current newest-first list.
func (s *ConversationStore) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]models.Message, len(s.messages))
	copy(snapshot, s.messages)
	return snapshot
}

// Len returns the current list length.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Version returns a counter that increments on every mutation, for cheap
// change detection.
func (s *ConversationStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
