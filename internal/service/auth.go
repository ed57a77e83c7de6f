package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/repository"
)

// ConfirmationSender delivers account confirmation tokens.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, email, token string) error
}

// NotifierConfirmation sends confirmation tokens as info notifications.
type NotifierConfirmation struct {
	Notifier notify.Notifier
}

// SendConfirmation implements ConfirmationSender.
func (n NotifierConfirmation) SendConfirmation(ctx context.Context, email, token string) error {
	if n.Notifier == nil {
		return nil
	}
	n.Notifier.Notify(ctx, notify.New(notify.Info, "", fmt.Sprintf("Confirmation for %s: %s", email, token)))
	return nil
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8,max=72"`
}

// AuthService manages storefront accounts and their sessions.
type AuthService struct {
	accounts repository.AccountRepository
	tokens   *TokenService
	sender   ConfirmationSender
	cost     int
	log      zerolog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(accounts repository.AccountRepository, tokens *TokenService, sender ConfirmationSender, logger zerolog.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		sender:   sender,
		cost:     bcrypt.DefaultCost,
		log:      logger.With().Str("component", "auth").Logger(),
	}
}

func (s *AuthService) sendConfirmation(ctx context.Context, id int64, email string) error {
	token, err := randomHex(16)
	if err != nil {
		return fmt.Errorf("failed to generate confirm token: %w", err)
	}
	if err := s.accounts.SetConfirmToken(ctx, id, token); err != nil {
		return fmt.Errorf("failed to store confirm token: %w", err)
	}
	if s.sender != nil {
		if err := s.sender.SendConfirmation(ctx, email, token); err != nil {
			return fmt.Errorf("failed to send confirmation: %w", err)
		}
	}
	return nil
}

// SignUp creates an unconfirmed account and sends its confirmation token.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*model.Account, error) {
	creds := credentials{Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
	if err := newValidationError("account", naming.Validate(&creds)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{Email: creds.Email, PasswordHash: string(hash), Role: model.RoleCustomer}
	id, err := s.accounts.CreateAccount(ctx, account)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAccountExists
	}
	if err != nil {
		return nil, err
	}
	account.ID = id

	if err := s.sendConfirmation(ctx, id, account.Email); err != nil {
		return nil, err
	}
	s.log.Info().Int64("account_id", id).Msg("account created")
	return account, nil
}

// SignIn checks the credentials of a confirmed account and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *model.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !account.Confirmed {
		return "", nil, ErrEmailNotConfirmed
	}

	token, err := s.tokens.GenerateToken(ctx, model.TokenData{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	})
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// ResendConfirmation issues a new confirmation token. Confirmed accounts are left alone.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("account %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if account.Confirmed {
		return nil
	}
	return s.sendConfirmation(ctx, account.ID, account.Email)
}

// Confirm confirms the account holding token.
func (s *AuthService) Confirm(ctx context.Context, token string) (*model.Account, error) {
	account, err := s.accounts.Confirm(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return account, err
}

// SignOut revokes a session token.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return s.tokens.RevokeToken(ctx, token)
}

// Authenticate returns the session behind token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.TokenData, error) {
	return s.tokens.ValidateToken(ctx, token)
}

// ListUsers returns a page of accounts and the total count.
func (s *AuthService) ListUsers(ctx context.Context, limit, offset int) ([]model.Account, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.List(ctx, limit, offset)
}

// SetRole changes the role of an account.
func (s *AuthService) SetRole(ctx context.Context, id int64, role string) error {
	if role != model.RoleAdmin && role != model.RoleCustomer {
		ve := &ValidationError{Entity: "account"}
		ve.Add("role", "oneof")
		return ve
	}
	return accountErr(id, s.accounts.SetRole(ctx, id, role))
}

// DeleteUser removes an account.
func (s *AuthService) DeleteUser(ctx context.Context, id int64) error {
	return accountErr(id, s.accounts.DeleteAccount(ctx, id))
}

func accountErr(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return err
}
