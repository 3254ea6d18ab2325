package services

import (
	"context"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
)

// TwilioService sends WhatsApp messages through the Twilio Messages API
type TwilioService struct {
	client *twilio.RestClient
	from   string // Your Twilio WhatsApp number
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(cfg config.TwilioConfig) (*TwilioService, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		client: client,
		from:   cfg.WhatsAppFrom,
	}, nil
}

// SendWhatsAppMessage sends a single WhatsApp message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	if resp.Sid != nil {
		log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	}
	return nil
}

// SendText splits long bodies into several messages
func (t *TwilioService) SendText(ctx context.Context, to, body string) error {
	for _, chunk := range chunkMessage(body, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.SendWhatsAppMessage(to, chunk); err != nil {
			return err
		}
	}
	return nil
}

// SendReaction is not available on the Twilio WhatsApp channel; the reaction
// is only logged.
func (t *TwilioService) SendReaction(_ context.Context, to, messageID, emoji string) error {
	log.Printf("Reaction %s for %s on %s skipped (not supported by Twilio)", emoji, to, messageID)
	return nil
}

// MarkRead is a no-op: Twilio reports read receipts but cannot send them.
func (t *TwilioService) MarkRead(context.Context, string) error {
	return nil
}
