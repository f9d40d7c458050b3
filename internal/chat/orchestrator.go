package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tablechat/internal/assistant"
	"tablechat/internal/repo"
	"tablechat/pkg/models"

	"github.com/rs/zerolog/log"
)

const apologyMessage = "I apologize, but I am having trouble processing your request right now."

// Config tunes the streaming loop. Zero values fall back to production
// defaults; tests shrink them.
type Config struct {
	PollInterval time.Duration
	PollBudget   time.Duration
	WordDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	if c.PollBudget == 0 {
		c.PollBudget = 2 * time.Minute
	}
	if c.WordDelay == 0 {
		c.WordDelay = 30 * time.Millisecond
	}
	return c
}

// Service drives one streaming turn: message creation, thread binding, the
// upstream polling loop, incremental event emission, and the final
// persistence write.
type Service struct {
	conversations *repo.ConversationRepository
	messages      *repo.MessageRepository
	assistant     assistant.Client
	cfg           Config
	locks         *conversationLocks
}

// NewService creates the streaming orchestrator
func NewService(conversations *repo.ConversationRepository, messages *repo.MessageRepository, client assistant.Client, cfg Config) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		assistant:     client,
		cfg:           cfg.withDefaults(),
		locks:         newConversationLocks(),
	}
}

// Turn holds everything created before streaming begins: the user row, the
// bot placeholder, and the optional one-shot rename.
type Turn struct {
	user         *models.User
	conversation *models.Conversation
	userMessage  *models.Message
	botMessage   *models.Message
	update       *ConversationUpdate
	release      func()
}

// BeginTurn runs the pre-stream part of a turn: it serializes on the
// conversation, validates ownership, creates the user message and bot
// placeholder in one transaction, and renames a pristine conversation.
// Errors here surface as plain HTTP errors because no headers have been
// committed yet. On success the caller must follow up with Stream, which
// releases the conversation lock.
func (s *Service) BeginTurn(user *models.User, conversationID uint, content string) (*Turn, error) {
	release := s.locks.acquire(conversationID)

	conversation, err := s.conversations.GetByIDForUser(conversationID, user.ID)
	if err != nil {
		release()
		return nil, err
	}

	userMessage, botMessage, err := s.messages.CreateTurn(conversation.ID, content)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to create message pair: %w", err)
	}

	turn := &Turn{
		user:         user,
		conversation: conversation,
		userMessage:  userMessage,
		botMessage:   botMessage,
		release:      release,
	}

	if conversation.IsNew {
		titles, err := s.conversations.ListTitles(user.ID, conversation.ID)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to load conversation titles: %w", err)
		}
		title := nextSequentialTitle(titles)
		if err := s.conversations.Rename(conversation.ID, title); err != nil {
			release()
			return nil, fmt.Errorf("failed to rename conversation: %w", err)
		}
		conversation.Title = title
		conversation.IsNew = false
		turn.update = &ConversationUpdate{ID: conversation.ID, Title: title, IsNew: false}
	}

	return turn, nil
}

// Stream drives the turn to completion and emits the ordered event sequence.
// All failures past this point degrade to an in-band error event; the
// terminal sentinel and the bot-message persistence write happen on every
// exit path. The caller should pass a context detached from the client
// connection so a disconnect does not abort the upstream run.
func (s *Service) Stream(ctx context.Context, em Emitter, turn *Turn) {
	defer turn.release()
	defer func() {
		_ = em.Done()
	}()

	var transcript strings.Builder
	var captured models.SearchParams

	defer func() {
		encoded, err := models.EncodeSearchParams(captured)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode search payload, persisting without it")
		}
		if err := s.messages.FinalizeBotMessage(turn.botMessage.ID, strings.TrimSpace(transcript.String()), encoded); err != nil {
			log.Error().Err(err).Uint("message_id", turn.botMessage.ID).Msg("Failed to persist bot message")
		}
	}()

	_ = em.Emit(userMessageEvent{UserMessageID: turn.userMessage.ID})
	_ = em.Emit(botMessageEvent{BotMessageID: turn.botMessage.ID})
	if turn.update != nil {
		_ = em.Emit(conversationUpdateEvent{ConversationUpdate: *turn.update})
	}

	threadID, err := s.bindThread(ctx, turn)
	if err != nil {
		log.Error().Err(err).Uint("conversation_id", turn.conversation.ID).Msg("Thread binding failed")
		_ = em.Emit(errorEvent{Error: apologyMessage})
		return
	}

	if err := s.assistant.AddUserMessage(ctx, threadID, turn.userMessage.Content); err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to append user message")
		_ = em.Emit(errorEvent{Error: apologyMessage})
		return
	}

	runID, err := s.assistant.StartRun(ctx, threadID)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to start run")
		_ = em.Emit(errorEvent{Error: apologyMessage})
		return
	}

	deadline := time.Now().Add(s.cfg.PollBudget)
	handledCalls := make(map[string]bool)

polling:
	for {
		run, err := s.assistant.GetRun(ctx, threadID, runID)
		if err != nil {
			log.Error().Err(err).Str("run_id", runID).Msg("Failed to poll run")
			_ = em.Emit(errorEvent{Error: apologyMessage})
			return
		}

		switch run.Status {
		case assistant.StatusRequiresAction:
			// Each tool call is handled and submitted once, even when the
			// status lingers on requires_action across polls. Action handling
			// falls through to the budget check and interval sleep below, so
			// a run stuck in this state polls at the same bounded cadence as
			// any other.
			pending := make([]assistant.ToolCall, 0, len(run.ToolCalls))
			for _, call := range run.ToolCalls {
				if handledCalls[call.ID] {
					continue
				}
				handledCalls[call.ID] = true
				pending = append(pending, call)
			}
			if len(pending) > 0 {
				if params := handleToolCalls(em, pending); params != nil {
					captured = params
				}
				if err := s.assistant.AcknowledgeToolCalls(ctx, threadID, runID, pending); err != nil {
					log.Error().Err(err).Str("run_id", runID).Msg("Failed to acknowledge tool calls")
					_ = em.Emit(errorEvent{Error: apologyMessage})
					return
				}
			}

		case assistant.StatusCompleted:
			break polling

		case assistant.StatusFailed, assistant.StatusCancelled, assistant.StatusExpired:
			log.Warn().Str("run_id", runID).Str("status", run.Status).Msg("Run ended without completing")
			_ = em.Emit(errorEvent{Error: apologyMessage})
			return
		}

		if time.Now().After(deadline) {
			log.Warn().Str("run_id", runID).Dur("budget", s.cfg.PollBudget).Msg("Run polling budget exhausted")
			_ = em.Emit(errorEvent{Error: apologyMessage})
			return
		}
		time.Sleep(s.cfg.PollInterval)
	}

	reply, err := s.assistant.LatestAssistantMessage(ctx, threadID)
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Failed to fetch assistant reply")
		_ = em.Emit(errorEvent{Error: apologyMessage})
		return
	}

	// Word-by-word pacing so the client renders a typing effect
	for _, word := range strings.Fields(reply) {
		token := word + " "
		_ = em.Emit(contentEvent{Content: token})
		transcript.WriteString(token)
		time.Sleep(s.cfg.WordDelay)
	}
}

// bindThread returns the conversation's external thread, creating and
// persisting one on first use. The very first bind also injects a context
// message so the assistant can personalize responses.
func (s *Service) bindThread(ctx context.Context, turn *Turn) (string, error) {
	if turn.conversation.ThreadID != nil {
		return *turn.conversation.ThreadID, nil
	}

	threadID, err := s.assistant.CreateThread(ctx)
	if err != nil {
		return "", err
	}

	if err := s.conversations.AssignThreadID(turn.conversation.ID, threadID); err != nil {
		// A concurrent first send may have bound its own thread between our
		// read and write; fall back to whatever is persisted.
		refreshed, rerr := s.conversations.GetByIDForUser(turn.conversation.ID, turn.user.ID)
		if rerr == nil && refreshed.ThreadID != nil {
			return *refreshed.ThreadID, nil
		}
		return "", err
	}
	turn.conversation.ThreadID = &threadID

	intro := fmt.Sprintf("The user you are assisting is named %s.", turn.user.Name)
	if err := s.assistant.AddUserMessage(ctx, threadID, intro); err != nil {
		return "", err
	}

	return threadID, nil
}
