package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const me = "me"

// Config holds the OAuth client and the long-lived refresh token of the sending mailbox
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// Overrides for tests; zero values use Google's endpoints
	TokenURL   string
	APIBaseURL string
}

// Service sends pre-composed messages through the Gmail API
type Service struct {
	srv *gmail.Service
}

// refreshLoggingTokenSource logs whenever the access token changes
type refreshLoggingTokenSource struct {
	mu      sync.Mutex
	src     oauth2.TokenSource
	current string
	log     logrus.FieldLogger
}

func (s *refreshLoggingTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != t.AccessToken {
		s.current = t.AccessToken
		s.log.WithField("expiry", t.Expiry).Debug("Gmail access token refreshed")
	}
	return t, nil
}

// NewService builds a Gmail client authorised by cfg.RefreshToken
func NewService(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Service, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("gmail transport requires client id, client secret and refresh token")
	}

	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams}
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}

	// An expired token with only the refresh token set forces a refresh on first use
	src := &refreshLoggingTokenSource{
		src: oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}),
		log: log,
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, src))}
	if cfg.APIBaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.APIBaseURL))
	}
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Service{srv: srv}, nil
}

// Send submits msg as the authorised mailbox. Recipients are taken from the
// message headers by Gmail, so from and to are informational only.
func (s *Service) Send(ctx context.Context, _ string, _ []string, msg []byte) error {
	_, err := s.srv.Users.Messages.Send(me, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(msg),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to send message: %w", err)
	}
	return nil
}

// Verify checks the credentials by reading the mailbox profile
func (s *Service) Verify(ctx context.Context) error {
	profile, err := s.srv.Users.GetProfile(me).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to read Gmail profile: %w", err)
	}
	if profile.EmailAddress == "" {
		return errors.New("gmail profile has no email address")
	}
	return nil
}
