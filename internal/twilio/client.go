package twilio

import (
	"fmt"
	"log"
	"strings"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client wraps Twilio messaging operations required by the bot.
type Client struct {
	client       *twilio.RestClient
	fromWhatsApp string
	logger       *log.Logger
}

// New creates a Twilio client bound to the configured WhatsApp sender number.
func New(accountSID, authToken, fromWhatsApp string, logger *log.Logger) *Client {
	var rest *twilio.RestClient
	if accountSID != "" && authToken != "" {
		rest = twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
	}
	return &Client{
		client:       rest,
		fromWhatsApp: fromWhatsApp,
		logger:       logger,
	}
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio's API.
func (c *Client) SendWhatsAppMessage(to, body string) error {
	if c.client == nil {
		return fmt.Errorf("twilio client not initialised")
	}

	sender := NormalizeWhatsAppAddress(c.fromWhatsApp)
	if sender == "" {
		return fmt.Errorf("twilio sender WhatsApp number is not configured")
	}

	recipient := NormalizeWhatsAppAddress(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message error: %w", err)
	}

	if c.logger != nil && resp.Sid != nil {
		c.logger.Printf("twilio: message to %s accepted, SID %s", recipient, *resp.Sid)
	}
	return nil
}

// NormalizeWhatsAppAddress returns number in Twilio's "whatsapp:+<digits>" form.
func NormalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}

// SenderID strips the "whatsapp:" prefix Twilio puts on inbound From values.
func SenderID(from string) string {
	return strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
}
