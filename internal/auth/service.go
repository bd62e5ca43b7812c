package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/user"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Users interface {
	Create(ctx context.Context, in user.CreateInput) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// CodeSender delivers one-time passcodes to the customer.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

type Token struct {
	AccessToken string     `json:"accessToken"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	User        *user.User `json:"user"`
}

type Service struct {
	users  Users
	tokens *TokenIssuer
	otp    *OTPStore
	sender CodeSender
	logger *zap.Logger
}

func NewService(users Users, tokens *TokenIssuer, otp *OTPStore, sender CodeSender, logger *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, otp: otp, sender: sender, logger: logger}
}

// Register creates a customer account and signs it in.
func (s *Service) Register(ctx context.Context, in user.CreateInput) (*Token, error) {
	in.Role = user.RoleCustomer
	u, err := s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.activeUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if !u.CheckPassword(password) {
		logging.Debug(ctx, s.logger, "password mismatch", zap.String("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// RequestCode sends a one-time code to a registered email. Unknown emails
// succeed silently so the endpoint does not reveal which accounts exist.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	if _, err := s.activeUser(ctx, email); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil
		}
		return err
	}
	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return err
	}
	return s.sender.SendCode(ctx, email, code)
}

func (s *Service) VerifyCode(ctx context.Context, email, code string) (*Token, error) {
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return nil, err
	}
	u, err := s.activeUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) Authenticate(token string) (Principal, error) {
	return s.tokens.Parse(token)
}

func (s *Service) activeUser(ctx context.Context, email string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.Enabled {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) issue(u *user.User) (*Token, error) {
	signed, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, ExpiresAt: exp, User: u}, nil
}

// LogSender writes codes to the debug log. It stands in for an email gateway
// in local environments.
type LogSender struct {
	Logger *zap.Logger
}

func (l LogSender) SendCode(ctx context.Context, email, code string) error {
	logging.Debug(ctx, l.Logger, "one-time code issued", zap.String("email", email), zap.String("code", code))
	return nil
}
