package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jessmcb/trilog/internal/summary"
	"github.com/jessmcb/trilog/internal/workout"
)

// ErrEmptyMessage is returned when a chat turn arrives with no text.
var ErrEmptyMessage = errors.New("coach: message is required")

// Store is the slice of the persistence layer the coach needs.
type Store interface {
	ListWorkouts(ctx context.Context) ([]workout.Record, error)
	GetProfile(ctx context.Context) (*workout.Profile, error)
}

// Completer produces a reply for a message list. Satisfied by *OpenAI.
type Completer interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
}

// Service wires store, summarizer, and LLM into one chat turn.
type Service struct {
	store  Store
	llm    Completer
	prompt PromptBuilder
	sumCfg summary.Config
}

// NewService constructs the chat service.
func NewService(store Store, llm Completer, prompt PromptBuilder, sumCfg summary.Config) *Service {
	return &Service{store: store, llm: llm, prompt: prompt, sumCfg: sumCfg}
}

// Chat runs one coaching turn: fetch profile and full history, build
// the tiered training log, compose the prompt, and call the LLM.
// A missing profile degrades to the generic coach framing.
func (s *Service) Chat(ctx context.Context, userMsg string, history []Message, now time.Time) (string, error) {
	if strings.TrimSpace(userMsg) == "" {
		return "", ErrEmptyMessage
	}

	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		// Degrade rather than fail: the prompt builder handles nil.
		profile = nil
	}

	records, err := s.store.ListWorkouts(ctx)
	if err != nil {
		return "", fmt.Errorf("list workouts: %w", err)
	}

	trainingLog := summary.Build(records, now, s.sumCfg)
	msgs := s.prompt.Build(profile, trainingLog, history, userMsg, now)

	reply, err := s.llm.Complete(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("coach completion: %w", err)
	}
	return reply, nil
}
