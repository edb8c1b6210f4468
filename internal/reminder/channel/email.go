package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"medreminder-backend/internal/reminder/domain"

	"github.com/emersion/go-message/mail"
)

// Transport submits an already composed RFC 5322 message
type Transport interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// EmailChannel renders reminders and hands them to a Transport
type EmailChannel struct {
	transport Transport
	from      *mail.Address
	brand     string
	now       func() time.Time
}

// NewEmailChannel creates an email channel sending as "fromName <fromAddress>".
// fromName doubles as the brand in the message body.
func NewEmailChannel(transport Transport, fromName, fromAddress string) *EmailChannel {
	return &EmailChannel{
		transport: transport,
		from:      &mail.Address{Name: fromName, Address: fromAddress},
		brand:     fromName,
		now:       time.Now,
	}
}

func (c *EmailChannel) Deliver(ctx context.Context, recipient string, r *domain.Reminder) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", errors.New("recipient address is empty")
	}

	content, err := Render(r, c.brand)
	if err != nil {
		return "", err
	}

	msg, messageID, err := c.compose(recipient, content)
	if err != nil {
		return "", err
	}

	if err := c.transport.Send(ctx, c.from.Address, []string{recipient}, msg); err != nil {
		return "", err
	}
	return messageID, nil
}

// Verify checks the underlying transport
func (c *EmailChannel) Verify(ctx context.Context) error {
	if v, ok := c.transport.(Verifier); ok {
		return v.Verify(ctx)
	}
	return nil
}

func (c *EmailChannel) compose(recipient string, content Content) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(c.now())
	h.SetAddressList("From", []*mail.Address{c.from})
	h.SetAddressList("To", []*mail.Address{{Address: recipient}})
	h.SetSubject(content.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("failed to generate message id: %w", err)
	}
	messageID, err := h.MessageID()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create mail writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create inline part: %w", err)
	}
	if err := writePart(tw, "text/plain", content.Text); err != nil {
		return nil, "", err
	}
	if err := writePart(tw, "text/html", content.HTML); err != nil {
		return nil, "", err
	}
	if err := tw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close inline part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), messageID, nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}
