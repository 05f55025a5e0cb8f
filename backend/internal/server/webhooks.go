package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thoth/backend/internal/agent"
	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/storage"
	"thoth/backend/internal/twilio"
)

// SMSSender sends outbound texts. Satisfied by *twilio.Client.
type SMSSender interface {
	SendMessage(ctx context.Context, to, body string) (*twilio.Message, error)
}

const (
	smsUnauthorizedReply = "Unauthorized. Please register first."
	smsUnavailableReply  = "Service temporarily unavailable."
	smsFailureReply      = "I'm sorry, I'm experiencing technical difficulties. Please try again later."
	smsErrorReply        = "Error processing message."

	callRejectionLine = "Sorry, this number is not registered. Please register first."
	callPromptLine    = "Please speak your question after the beep, and I'll provide an answer."
	callClosingLine   = "Thank you. Processing your request."
	callErrorLine     = "Sorry, there was an error processing your call."
)

// smsHistoryLimit is how many of the owner's recent outbound messages
// feed the reply context.
const smsHistoryLimit = 10

// smsInstruction frames SMS replies; the history block travels in the
// same context map so the model can answer questions about messages it
// previously sent.
const smsInstruction = `You are Thoth, Gad's AI assistant. You communicate via SMS.
If Gad asks who sent a message or what it was about, check the RECENT SMS MESSAGES history.
Be encouraging but direct, and keep replies short enough for a text message. Use the 𓂀 Thoth signature.`

func normalizeDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// userByDigits resolves a normalized phone number to an account.
func (s *Server) userByDigits(digits string) (storage.User, bool) {
	phone, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return storage.User{}, false
	}
	user, err := s.deps.Store.GetUserByPhone(phone)
	if err != nil {
		return storage.User{}, false
	}
	return user, true
}

// resolveSMSSender is userByDigits plus the owner fallback: the owner's
// number maps to the owner account even when the phone column is empty.
func (s *Server) resolveSMSSender(digits string) (storage.User, bool) {
	if user, ok := s.userByDigits(digits); ok {
		return user, true
	}
	if digits != "" && digits == normalizeDigits(s.deps.OwnerPhone) {
		if user, err := s.deps.Store.GetUserByUsername(constants.OwnerUsername); err == nil {
			return user, true
		}
	}
	return storage.User{}, false
}

func historyField(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return fallback
}

// ownerSMSHistory formats the owner's recent outbound SMS log. Sent
// messages are always recorded against the owner account, so the
// history is read from there regardless of who is texting.
func (s *Server) ownerSMSHistory() string {
	owner, err := s.deps.Store.GetUserByUsername(constants.OwnerUsername)
	if err != nil {
		s.logger.Debug("Owner account not found; no SMS history", zap.Error(err))
		return ""
	}

	sent := memory.Load(memory.TierShortTerm, owner.UserID, s.deps.DBMemory).SentSMS()
	if len(sent) == 0 {
		return ""
	}
	if len(sent) > smsHistoryLimit {
		sent = sent[len(sent)-smsHistoryLimit:]
	}

	var b strings.Builder
	b.WriteString("\n\nRECENT SMS MESSAGES YOU SENT TO GAD:\n")
	for _, entry := range sent {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- [%s] Source: %s | Request: '%s' | Message: '%s...'\n",
			historyField(m, "date", ""),
			historyField(m, "source", "unknown"),
			historyField(m, "original_request", "Unknown"),
			truncateRunes(historyField(m, "message", ""), 100),
		)
	}
	return b.String()
}

// handleIncomingSMS answers a text from a registered number with an
// agent turn. Twilio treats anything but TwiML as retryable, so every
// outcome, including a panic, renders a 200 message reply.
func (s *Server) handleIncomingSMS(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("SMS webhook failure", zap.Any("panic", r))
			c.XML(http.StatusOK, messagingResponse{Message: smsErrorReply})
		}
	}()

	from := c.PostForm("From")
	body := strings.TrimSpace(c.PostForm("Body"))
	digits := normalizeDigits(from)

	s.logger.Info("Incoming SMS",
		zap.String("from", from),
		zap.Int("body_length", len(body)),
	)

	user, ok := s.resolveSMSSender(digits)
	if !ok {
		s.logger.Warn("Unauthorized SMS sender", zap.String("from", from))
		c.XML(http.StatusOK, messagingResponse{Message: smsUnauthorizedReply})
		return
	}

	chatID := "sms_" + digits
	queryID, err := s.deps.Store.CreateQuery(user.UserID, chatID, body)
	if err != nil {
		s.logger.Error("Failed to persist SMS query", zap.Error(err))
		c.XML(http.StatusOK, messagingResponse{Message: smsUnavailableReply})
		return
	}

	// Webhook turns run against the local memory documents and do not
	// persist conversation state.
	longTerm := memory.Load(memory.TierLongTerm, user.UserID, s.deps.LocalMemory)
	shortTerm := memory.Load(memory.TierShortTerm, user.UserID, s.deps.LocalMemory)

	reply, err := s.deps.Orchestrator.Run(c.Request.Context(), agent.Request{
		Query:  body,
		UserID: user.UserID,
		ChatID: chatID,
		Source: constants.SourceSMS,
		Context: map[string]interface{}{
			"source":      "sms_reply",
			"sms_history": s.ownerSMSHistory(),
			"instruction": smsInstruction,
		},
		MaxTokens:   constants.SMSMaxTokens,
		Temperature: 0.7,
	}, longTerm, shortTerm)
	if err != nil {
		s.logger.Error("AI processing error for SMS", zap.Error(err))
		c.XML(http.StatusOK, messagingResponse{Message: smsFailureReply})
		return
	}

	if err := s.deps.Store.UpdateQueryResponse(queryID, reply); err != nil {
		s.logger.Error("Failed to record SMS response",
			zap.Int64("query_id", queryID),
			zap.Error(err),
		)
	}

	if utf8.RuneCountInString(reply) > constants.SMSMaxBodyLength {
		reply = truncateRunes(reply, constants.SMSMaxBodyLength) + "..."
	}
	c.XML(http.StatusOK, messagingResponse{Message: reply})
}

func (s *Server) handleMessageStatus(c *gin.Context) {
	var form struct {
		MessageSid    string `form:"MessageSid" binding:"required"`
		MessageStatus string `form:"MessageStatus" binding:"required"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}

	s.logger.Info("Message delivery status",
		zap.String("message_sid", form.MessageSid),
		zap.String("message_status", form.MessageStatus),
	)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// handleIncomingCall greets a registered caller and records a question
// for asynchronous transcription.
func (s *Server) handleIncomingCall(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Call webhook failure", zap.Any("panic", r))
			c.XML(http.StatusOK, voiceHangupResponse(callErrorLine))
		}
	}()

	from := c.PostForm("From")
	user, ok := s.userByDigits(normalizeDigits(from))
	if !ok {
		s.logger.Warn("Call from unregistered number", zap.String("from", from))
		c.XML(http.StatusOK, voiceHangupResponse(callRejectionLine))
		return
	}

	s.logger.Info("Incoming call",
		zap.String("from", from),
		zap.String("username", user.Username),
	)
	c.XML(http.StatusOK, voiceResponse{Verbs: []interface{}{
		say{Text: fmt.Sprintf("Hello %s! Welcome to the AI assistant.", user.Username)},
		say{Text: callPromptLine},
		record{
			Timeout:            10,
			MaxLength:          30,
			Transcribe:         true,
			TranscribeCallback: "/webhook/transcription-callback",
		},
		say{Text: callClosingLine},
	}})
}

// handleTranscriptionCallback turns a completed voicemail transcription
// into an agent answer and texts it back. The caller hung up long ago,
// so Twilio only needs a JSON ack here.
func (s *Server) handleTranscriptionCallback(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Transcription webhook failure", zap.Any("panic", r))
			c.JSON(http.StatusOK, gin.H{"status": "error"})
		}
	}()

	var form struct {
		From                string `form:"From" binding:"required"`
		TranscriptionText   string `form:"TranscriptionText" binding:"required"`
		TranscriptionStatus string `form:"TranscriptionStatus" binding:"required"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
		return
	}

	if form.TranscriptionStatus != "completed" {
		s.logger.Warn("Transcription did not complete",
			zap.String("status", form.TranscriptionStatus),
		)
		c.JSON(http.StatusOK, gin.H{"status": "transcription_failed"})
		return
	}

	digits := normalizeDigits(form.From)
	user, ok := s.userByDigits(digits)
	if !ok {
		s.logger.Warn("Transcription from unregistered number", zap.String("from", form.From))
		c.JSON(http.StatusOK, gin.H{"status": "user_not_found"})
		return
	}

	chatID := "voice_" + digits
	queryID, err := s.deps.Store.CreateQuery(user.UserID, chatID, form.TranscriptionText)
	if err != nil {
		s.logger.Error("Failed to persist voice query", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "processing_error"})
		return
	}

	longTerm := memory.Load(memory.TierLongTerm, user.UserID, s.deps.LocalMemory)
	shortTerm := memory.Load(memory.TierShortTerm, user.UserID, s.deps.LocalMemory)

	answer, err := s.deps.Orchestrator.Run(c.Request.Context(), agent.Request{
		Query:       form.TranscriptionText,
		UserID:      user.UserID,
		ChatID:      chatID,
		Source:      constants.SourceVoice,
		MaxTokens:   constants.VoiceMaxTokens,
		Temperature: 0.7,
	}, longTerm, shortTerm)
	if err != nil {
		s.logger.Error("AI processing error for transcription", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "processing_error"})
		return
	}

	if err := s.deps.Store.UpdateQueryResponse(queryID, answer); err != nil {
		s.logger.Error("Failed to record voice response",
			zap.Int64("query_id", queryID),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"status": "processing_error"})
		return
	}

	if _, err := s.deps.SMS.SendMessage(c.Request.Context(), form.From, "Voice Response: "+answer); err != nil {
		s.logger.Error("Failed to send SMS response", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
