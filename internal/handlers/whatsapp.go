package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/orderbot-backend/internal/dedup"
	"github.com/Ananth-NQI/orderbot-backend/internal/services"
)

// emptyTwiML acknowledges a webhook without an inline reply. Replies go out
// through the REST API.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	engine  *services.Engine
	deduper dedup.Deduper
}

// NewWhatsAppHandler creates a new WhatsApp handler. deduper may be nil.
func NewWhatsAppHandler(engine *services.Engine, deduper dedup.Deduper) *WhatsAppHandler {
	return &WhatsAppHandler{
		engine:  engine,
		deduper: deduper,
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid        string `form:"MessageSid"`
	AccountSid        string `form:"AccountSid"`
	From              string `form:"From"` // whatsapp:+5215551234567
	To                string `form:"To"`
	Body              string `form:"Body"`
	NumMedia          string `form:"NumMedia"`
	MessageStatus     string `form:"MessageStatus"` // set on delivery callbacks
	ProfileName       string `form:"ProfileName"`
	MediaContentType0 string `form:"MediaContentType0"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no sender text
	if payload.From == "" || payload.MessageStatus != "" {
		return ackTwiML(c)
	}

	if h.deduper != nil && payload.MessageSid != "" {
		first, err := h.deduper.FirstSeen(c.UserContext(), payload.MessageSid)
		if err != nil {
			log.Printf("⚠️ Dedup check failed for %s, processing anyway: %v", payload.MessageSid, err)
		} else if !first {
			log.Printf("🔁 Duplicate delivery of %s ignored", payload.MessageSid)
			return ackTwiML(c)
		}
	}

	h.engine.HandleIncomingMessage(c.UserContext(), payload.From, payload.Body, payload.MessageSid)
	return ackTwiML(c)
}

func ackTwiML(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/xml; charset=utf-8")
	return c.Status(fiber.StatusOK).SendString(emptyTwiML)
}

// TestWebhookPayload drives the conversation without Twilio
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook runs one message through the engine and returns
// everything the bot would have sent.
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil || payload.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)

	capture := services.NewCaptureMessenger()
	h.engine.WithMessenger(capture).HandleIncomingMessage(c.UserContext(), payload.From, payload.Message, "")

	from := services.NormalizeSender(payload.From)
	replies := capture.Texts(from)
	if replies == nil {
		replies = []string{}
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"replies":  replies,
		"outbound": capture.Messages(),
	})
}
