package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
)

// AccountService handles account management. Deleting an account cascades
// its transactions at the schema level.
type AccountService struct {
	accountRepo *repository.AccountRepository
	locks       *AccountLocks
}

// NewAccountService creates a new AccountService with the provided repository.
func NewAccountService(accountRepo *repository.AccountRepository, locks *AccountLocks) *AccountService {
	return &AccountService{accountRepo: accountRepo, locks: locks}
}

// List returns all accounts.
func (s *AccountService) List() ([]model.Account, error) {
	return s.accountRepo.List()
}

// Get returns a single account.
func (s *AccountService) Get(id string) (model.Account, error) {
	return s.accountRepo.GetByID(id)
}

// Create creates a new account.
func (s *AccountService) Create(ctx context.Context, req request.CreateAccountRequest) (model.Account, error) {
	account := model.Account{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Type:      model.AccountType(req.Type),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.accountRepo.Insert(ctx, &account); err != nil {
		return model.Account{}, err
	}
	return account, nil
}

// Delete removes an account and, via the schema, its transactions.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)
	return s.accountRepo.Delete(ctx, id)
}
