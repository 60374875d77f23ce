package agent

import (
	"sync"

	"mediabot/internal/domain"
)

// AgentContext is one chat's working memory: the ordered tool-call history
// and the media assets produced so far. The orchestrator is the single
// writer; executors only ever see snapshot copies.
type AgentContext struct {
	ChatID    string
	ToolCalls []domain.ToolCallRecord
	Images    []string
	Videos    []string
	Audio     []string
}

// chatState pairs a chat's context with the mutex that serializes its turns.
type chatState struct {
	mu  sync.Mutex
	ctx *AgentContext
}

// ContextManager hands out per-chat contexts. Different chats proceed
// concurrently; turns within one chat run in arrival order under the chat's
// own lock.
type ContextManager struct {
	mu    sync.Mutex
	chats map[string]*chatState
}

func NewContextManager() *ContextManager {
	return &ContextManager{chats: make(map[string]*chatState)}
}

func (m *ContextManager) state(chatID string) *chatState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.chats[chatID]
	if !ok {
		st = &chatState{ctx: &AgentContext{ChatID: chatID}}
		m.chats[chatID] = st
	}
	return st
}

// Lock acquires the chat's turn lock and returns its context plus an unlock
// function. The caller holds the lock for the whole turn, so same-chat turns
// cannot interleave.
func (m *ContextManager) Lock(chatID string) (*AgentContext, func()) {
	st := m.state(chatID)
	st.mu.Lock()
	return st.ctx, st.mu.Unlock
}

// Append records a completed tool call and any assets it produced. Caller
// must hold the chat's lock.
func (ac *AgentContext) Append(call domain.ToolCallRecord, result domain.ToolResult) {
	ac.ToolCalls = append(ac.ToolCalls, call)
	if result.ImageURL != "" {
		ac.Images = append(ac.Images, result.ImageURL)
	}
	if result.VideoURL != "" {
		ac.Videos = append(ac.Videos, result.VideoURL)
	}
	if result.AudioURL != "" {
		ac.Audio = append(ac.Audio, result.AudioURL)
	}
}

// Snapshot returns copies of the context's slices, safe to hand to a tool
// executor that runs while later turns mutate the original.
func (ac *AgentContext) Snapshot() (calls []domain.ToolCallRecord, images, videos, audio []string) {
	calls = append([]domain.ToolCallRecord(nil), ac.ToolCalls...)
	images = append([]string(nil), ac.Images...)
	videos = append([]string(nil), ac.Videos...)
	audio = append([]string(nil), ac.Audio...)
	return calls, images, videos, audio
}
