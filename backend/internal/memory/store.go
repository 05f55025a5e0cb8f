// Package memory provides the per-user two-tier memory documents: short-term
// (recent conversations, active context, sent-SMS log) and long-term (profile,
// preferences, goals).
//
// Documents are loaded fresh per request, mutated in memory, and written back
// once at the end of the turn. Concurrent requests for the same user race on
// the write-back and the last writer wins; this is a documented limitation of
// the low-concurrency personal-assistant workload, not hidden behind locking.
package memory

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"thoth/backend/internal/constants"
	"thoth/backend/pkg/logger"
)

// Tier names for the two document instances.
const (
	TierShortTerm = "short_term"
	TierLongTerm  = "long_term"
)

// Document is a schemaless string-keyed map of JSON-compatible values.
// Readers tolerate missing keys; nothing validates the shape.
type Document = map[string]interface{}

// DefaultShortTerm returns the empty short-term document shape.
func DefaultShortTerm() Document {
	return Document{
		"conversations": []interface{}{},
		"active_url":    map[string]interface{}{},
		"preferences":   map[string]interface{}{},
	}
}

// DefaultLongTerm returns the empty long-term document shape.
func DefaultLongTerm() Document {
	return Document{
		"user_profile":    map[string]interface{}{},
		"preferences":     map[string]interface{}{},
		"long_term_goals": map[string]interface{}{},
		"last_updated":    time.Now().UTC().Format(time.RFC3339),
	}
}

// Store is one loaded memory document with explicit save semantics. Set
// mutates only the in-memory copy; Save flushes it through the backend.
type Store struct {
	tier    string
	userID  int64
	doc     Document
	backend Backend
	logger  *zap.Logger
}

// Load reads the document for a tier from the backend. A missing, corrupt,
// or unreadable document degrades to the tier's default shape with a logged
// warning; Load never fails.
func Load(tier string, userID int64, backend Backend) *Store {
	s := &Store{
		tier:    tier,
		userID:  userID,
		backend: backend,
		logger:  logger.Get(),
	}

	raw, err := backend.Load(tier, userID)
	if err != nil {
		s.logger.Warn("Failed to load memory document, using defaults",
			zap.String("tier", tier),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		s.doc = defaultFor(tier)
		return s
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		s.logger.Warn("Memory document is not valid JSON, using defaults",
			zap.String("tier", tier),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		s.doc = defaultFor(tier)
		return s
	}

	s.doc = doc
	return s
}

func defaultFor(tier string) Document {
	if tier == TierLongTerm {
		return DefaultLongTerm()
	}
	return DefaultShortTerm()
}

// Tier returns which document this store holds.
func (s *Store) Tier() string {
	return s.tier
}

// UserID returns the owning user's id.
func (s *Store) UserID() int64 {
	return s.userID
}

// Get returns the stored value for key. Missing keys report ok=false, never
// an error.
func (s *Store) Get(key string) (interface{}, bool) {
	v, ok := s.doc[key]
	return v, ok
}

// Set writes key in memory. Durability is Save's job.
func (s *Store) Set(key string, value interface{}) {
	s.doc[key] = value
}

// Content returns the whole document for prompt building and bulk access.
func (s *Store) Content() Document {
	return s.doc
}

// Save flushes the document through the backend. Failures are logged and
// returned; callers treat them as non-fatal and continue with in-memory
// state.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.logger.Warn("Failed to serialize memory document",
			zap.String("tier", s.tier),
			zap.Int64("user_id", s.userID),
			zap.Error(err),
		)
		return err
	}
	if err := s.backend.Save(s.tier, s.userID, data); err != nil {
		s.logger.Warn("Failed to save memory document",
			zap.String("tier", s.tier),
			zap.Int64("user_id", s.userID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Conversations returns the short-term conversations list, empty when absent
// or of an unexpected shape.
func (s *Store) Conversations() []interface{} {
	v, ok := s.doc["conversations"]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	return list
}

// RecentConversations returns the most recent limit turns in chronological
// order.
func (s *Store) RecentConversations(limit int) []interface{} {
	list := s.Conversations()
	if limit <= 0 || len(list) <= limit {
		return list
	}
	return list[len(list)-limit:]
}

// AppendTurn appends a completed conversation turn and truncates the list to
// the most recent entries, oldest dropped first.
func (s *Store) AppendTurn(query, response, summary, chatID string) {
	turn := map[string]interface{}{
		"query":     query,
		"response":  response,
		"summary":   summary,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if chatID != "" {
		turn["chat_id"] = chatID
	}

	list := append(s.Conversations(), turn)
	if len(list) > constants.MaxConversationTurns {
		list = list[len(list)-constants.MaxConversationTurns:]
	}
	s.doc["conversations"] = list
}

// UpdateActiveURL records the page the user is currently on.
func (s *Store) UpdateActiveURL(url, title string) {
	s.doc["active_url"] = map[string]interface{}{
		"url":       url,
		"title":     title,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

// SentSMS returns the short-term sent-SMS log, empty when absent.
func (s *Store) SentSMS() []interface{} {
	v, ok := s.doc["sent_sms"]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	return list
}

// AppendSentSMS appends an entry to the sent-SMS log, truncated to the most
// recent entries.
func (s *Store) AppendSentSMS(entry map[string]interface{}) {
	list := append(s.SentSMS(), entry)
	if len(list) > constants.MaxSentSMSEntries {
		list = list[len(list)-constants.MaxSentSMSEntries:]
	}
	s.doc["sent_sms"] = list
}
