package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"thoth/backend/internal/constants"
	"thoth/backend/internal/memory"
	"thoth/backend/internal/storage"
	"thoth/backend/internal/twilio"
	"thoth/backend/pkg/logger"
)

// MessageSender sends an SMS and reports the gateway's metadata.
// Satisfied by *twilio.Client.
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) (*twilio.Message, error)
}

// SMSTools exposes the Twilio SMS tool. Every sent message is also
// recorded in the owner's short-term memory so the agent can answer
// "who asked you to text me?" later.
type SMSTools struct {
	client  MessageSender
	store   *storage.Store
	backend memory.Backend
	logger  *zap.Logger
}

// NewSMSTools creates the SMS tool set.
func NewSMSTools(client MessageSender, store *storage.Store, backend memory.Backend) *SMSTools {
	return &SMSTools{
		client:  client,
		store:   store,
		backend: backend,
		logger:  logger.Get(),
	}
}

// Definitions returns the SMS tool definitions for registration.
func (t *SMSTools) Definitions() []Definition {
	return []Definition{
		{
			Name: ToolSendSMS,
			Description: "Send an SMS via Twilio to a target phone number. " +
				"Use E.164 format for the phone number (e.g., +14155552671).",
			Params: []Param{
				{Name: "to_phone_number"},
				{Name: "message"},
			},
			Required: []string{"to_phone_number", "message"},
			Handler:  t.sendMessage,
		},
	}
}

func (t *SMSTools) sendMessage(ctx context.Context, req RequestContext, args map[string]interface{}) (interface{}, error) {
	toPhoneNumber := argString(args, "to_phone_number")
	message := argString(args, "message")

	msg, err := t.client.SendMessage(ctx, toPhoneNumber, message)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"message_sid":  msg.SID,
		"status":       msg.Status,
		"to":           msg.To,
		"date_created": msg.DateCreated,
	}

	t.recordSentSMS(req, toPhoneNumber, message, msg)

	return payload, nil
}

// recordSentSMS appends the sent message to the owner's short-term
// memory. Failures are logged and swallowed so a history problem never
// fails a successfully delivered SMS.
func (t *SMSTools) recordSentSMS(req RequestContext, toPhoneNumber, message string, msg *twilio.Message) {
	owner, err := t.store.GetUserByUsername(constants.OwnerUsername)
	if err != nil {
		t.logger.Warn("Owner account not found; skipping SMS history",
			zap.String("username", constants.OwnerUsername),
			zap.Error(err),
		)
		return
	}

	shortTerm := memory.Load(memory.TierShortTerm, owner.UserID, t.backend)

	to := msg.To
	if to == "" {
		to = toPhoneNumber
	}
	date := msg.DateCreated
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
	}
	source := req.Source
	if source == "" {
		source = constants.SourceWebsite
	}
	originalRequest := req.Query
	if originalRequest == "" {
		originalRequest = "Unknown request"
	}

	shortTerm.AppendTurn(
		fmt.Sprintf("TOOL CALL: send_twilio_message(to=%s)", toPhoneNumber),
		fmt.Sprintf("SMS sent with SID %s to %s", msg.SID, to),
		"Sent SMS via Twilio",
		req.ChatID,
	)
	shortTerm.AppendSentSMS(map[string]interface{}{
		"to":               to,
		"message":          message,
		"sid":              msg.SID,
		"date":             date,
		"source":           source,
		"original_request": originalRequest,
	})

	if err := shortTerm.Save(); err != nil {
		t.logger.Error("Failed to save SMS history", zap.Error(err))
		return
	}
	t.logger.Info("Recorded sent SMS in owner memory",
		zap.String("sid", msg.SID),
		zap.String("source", source),
	)
}
