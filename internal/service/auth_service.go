package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	customers  repository.CustomerRepository
	agents     repository.AgentRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	CustomerRepo repository.CustomerRepository
	AgentRepo    repository.AgentRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		customers:  deps.CustomerRepo,
		agents:     deps.AgentRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the signer for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterCustomer creates a new end-user account.
func (s *AuthService) RegisterCustomer(ctx context.Context, name, email, password string) (*domain.Customer, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, util.NewValidationError("name, email and password are required", nil)
	}
	if _, err := s.customers.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, util.NewValidationError("email already registered", nil)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, util.NewStoreError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, util.NewInternalError(err)
	}

	customer := &domain.Customer{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, "", time.Time{}, util.NewStoreError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, "", time.Time{}, util.NewInternalError(err)
	}
	return customer, token, exp, nil
}

// LoginCustomer authenticates an end-user.
func (s *AuthService) LoginCustomer(ctx context.Context, email, password string) (*domain.Customer, string, time.Time, error) {
	customer, err := s.customers.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, util.NewStoreError(err)
	}
	if err := auth.ComparePassword(customer.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, "", time.Time{}, util.NewInternalError(err)
	}
	return customer, token, exp, nil
}

// LoginAgent authenticates an agent and returns a role-bearing token.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*domain.Agent, string, time.Time, error) {
	agent, err := s.agents.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, util.NewStoreError(err)
	}
	if !agent.Active {
		return nil, "", time.Time{}, util.NewForbidden("agent inactive")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(agent.ID, domain.SubjectTypeAgent, &agent.Role)
	if err != nil {
		return nil, "", time.Time{}, util.NewInternalError(err)
	}
	return agent, token, exp, nil
}
