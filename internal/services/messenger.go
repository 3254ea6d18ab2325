package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"unicode/utf8"
)

// Messenger is the outbound side of the chat transport
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	// SendReaction reacts with emoji to the inbound message messageID
	SendReaction(ctx context.Context, to, messageID, emoji string) error
	MarkRead(ctx context.Context, messageID string) error
}

// maxMessageLen is the WhatsApp body limit enforced by Twilio
const maxMessageLen = 1600

// NormalizeSender strips the channel prefix and whitespace from a sender id
func NormalizeSender(from string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:"))
}

// PhoneDigits keeps only the digits of a phone number
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// chunkMessage splits text into chunks of at most maxLen bytes, preferring
// newline breaks and never cutting a UTF-8 sequence.
func chunkMessage(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = maxMessageLen
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		chunk := text[:maxLen]
		breakAt := -1
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if chunk[i] == '\n' {
				breakAt = i
				break
			}
		}

		if breakAt >= 0 {
			chunks = append(chunks, text[:breakAt])
			text = text[breakAt+1:]
			continue
		}
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

// LogMessenger only logs outbound traffic. Used when Twilio is not configured.
type LogMessenger struct{}

func (LogMessenger) SendText(_ context.Context, to, body string) error {
	log.Printf("📤 Response to %s (not sent - Twilio not configured):\n%s", to, body)
	return nil
}

func (LogMessenger) SendReaction(_ context.Context, to, messageID, emoji string) error {
	log.Printf("📤 Reaction %s to %s on %s (not sent)", emoji, to, messageID)
	return nil
}

func (LogMessenger) MarkRead(context.Context, string) error { return nil }

// OutboundMessage is one message recorded by CaptureMessenger
type OutboundMessage struct {
	To        string `json:"to"`
	Kind      string `json:"kind"` // text, reaction or read
	Body      string `json:"body,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// CaptureMessenger records everything it is asked to send
type CaptureMessenger struct {
	mu   sync.Mutex
	msgs []OutboundMessage
}

func NewCaptureMessenger() *CaptureMessenger {
	return &CaptureMessenger{}
}

func (c *CaptureMessenger) record(m OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *CaptureMessenger) SendText(_ context.Context, to, body string) error {
	c.record(OutboundMessage{To: to, Kind: "text", Body: body})
	return nil
}

func (c *CaptureMessenger) SendReaction(_ context.Context, to, messageID, emoji string) error {
	c.record(OutboundMessage{To: to, Kind: "reaction", Body: emoji, MessageID: messageID})
	return nil
}

func (c *CaptureMessenger) MarkRead(_ context.Context, messageID string) error {
	c.record(OutboundMessage{Kind: "read", MessageID: messageID})
	return nil
}

// Messages returns a copy of everything recorded so far
func (c *CaptureMessenger) Messages() []OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OutboundMessage(nil), c.msgs...)
}

// Texts returns the text bodies sent to one recipient
func (c *CaptureMessenger) Texts(to string) []string {
	var out []string
	for _, m := range c.Messages() {
		if m.Kind == "text" && m.To == to {
			out = append(out, m.Body)
		}
	}
	return out
}

// Reset drops the recorded messages
func (c *CaptureMessenger) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}
