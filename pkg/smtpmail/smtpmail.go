package smtpmail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"
)

const implicitTLSPort = 465

// Config describes an SMTP submission server
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Sender submits messages over SMTP. Port 465 uses implicit TLS,
// other ports upgrade with STARTTLS when the server offers it.
type Sender struct {
	cfg       Config
	tlsConfig *tls.Config
	log       logrus.FieldLogger
}

func NewSender(cfg Config, log logrus.FieldLogger) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Sender{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host},
		log:       log.WithField("component", "smtp"),
	}
}

// Send delivers msg to every recipient in one SMTP transaction
func (s *Sender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.SendMail(from, to, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	// The message is already accepted at this point
	if err := c.Quit(); err != nil {
		s.log.WithError(err).Warn("SMTP QUIT failed after the message was accepted")
	}
	return nil
}

// Verify connects and authenticates without sending anything
func (s *Sender) Verify(ctx context.Context) error {
	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Noop(); err != nil {
		return fmt.Errorf("smtp noop failed: %w", err)
	}
	return c.Quit()
}

func (s *Sender) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.Port == implicitTLSPort {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	c := smtp.NewClient(conn)
	if err := c.Hello("localhost"); err != nil {
		c.Close()
		return nil, fmt.Errorf("smtp hello failed: %w", err)
	}

	if s.cfg.Port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig); err != nil {
				c.Close()
				return nil, fmt.Errorf("smtp starttls failed: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		auth := sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
		if err := c.Auth(auth); err != nil {
			c.Close()
			return nil, fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	return c, nil
}
