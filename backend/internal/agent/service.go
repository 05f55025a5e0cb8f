package agent

import (
	"context"

	"go.uber.org/zap"

	"thoth/backend/internal/memory"
	"thoth/backend/internal/utils"
	"thoth/backend/pkg/logger"
)

// Service runs the full turn lifecycle around the orchestrator: load
// both memory tiers, answer the query, then summarize the turn, append
// it to short-term memory, and apply proposed long-term updates.
type Service struct {
	orchestrator *Orchestrator
	summarizer   *Summarizer
	updater      *MemoryUpdater
	backend      memory.Backend
	logger       *zap.Logger
}

// NewService wires the turn lifecycle over a memory backend.
func NewService(orchestrator *Orchestrator, summarizer *Summarizer, updater *MemoryUpdater, backend memory.Backend) *Service {
	return &Service{
		orchestrator: orchestrator,
		summarizer:   summarizer,
		updater:      updater,
		backend:      backend,
		logger:       logger.Get(),
	}
}

// Process answers one query with full memory handling. extra fields are
// merged into the long-term view before the turn and persisted with it.
// A non-nil error means the turn failed and neither memory document was
// modified.
func (s *Service) Process(ctx context.Context, req Request, extra map[string]interface{}) (string, error) {
	// 1. Load both memory tiers for the user.
	longTerm := memory.Load(memory.TierLongTerm, req.UserID, s.backend)
	shortTerm := memory.Load(memory.TierShortTerm, req.UserID, s.backend)

	// 2. Merge caller-supplied identity fields into the long-term view.
	for k, v := range extra {
		longTerm.Set(k, v)
	}

	// 3. Fall back to the stored language preference when the request
	// does not pin one.
	if req.Language == "" {
		if prefs, ok := longTerm.Get("preferences"); ok {
			if m, ok := prefs.(map[string]interface{}); ok {
				code, name := utils.ExtractLanguageFromPreferences(m)
				req.Language = code
				if req.LanguageName == "" {
					req.LanguageName = name
				}
			}
		}
	}

	// 4. Run the turn. On failure both documents are left untouched.
	response, err := s.orchestrator.Run(ctx, req, longTerm, shortTerm)
	if err != nil {
		s.logger.Warn("Skipping memory update due to query error",
			zap.Int64("user_id", req.UserID),
			zap.Error(err),
		)
		return "", err
	}

	// 5. Record the turn. Summarization degrades to fallback text and
	// never blocks the append; Save logs its own failures.
	summary := s.summarizer.Summarize(ctx, req.Query, response)
	shortTerm.AppendTurn(req.Query, response, summary, req.ChatID)
	_ = shortTerm.Save()

	// 6. Apply model-proposed long-term updates, then persist the
	// long-term view including any merged extra fields.
	if s.updater.ProposeAndApply(ctx, req.Query, response, longTerm) {
		s.logger.Debug("Long-term memory updated", zap.Int64("user_id", req.UserID))
	}
	_ = longTerm.Save()

	return response, nil
}
