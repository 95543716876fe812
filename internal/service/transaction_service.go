package service

import (
	"context"

	"github.com/spendah/spendah-backend/internal/api/request"
	"github.com/spendah/spendah-backend/internal/model"
	"github.com/spendah/spendah-backend/internal/repository"
)

// TransactionService exposes read and limited-update access to the ledger.
// The core fields of a transaction are immutable once ingested; only the
// enrichment fields can change, and the API never hard-deletes.
type TransactionService struct {
	transactionRepo *repository.TransactionRepository
}

// NewTransactionService creates a new TransactionService with the provided repository.
func NewTransactionService(transactionRepo *repository.TransactionRepository) *TransactionService {
	return &TransactionService{transactionRepo: transactionRepo}
}

// List returns transactions, optionally filtered by account, newest first.
func (s *TransactionService) List(accountID string, limit int) ([]model.Transaction, error) {
	return s.transactionRepo.List(accountID, limit)
}

// Get returns a single transaction.
func (s *TransactionService) Get(id string) (model.Transaction, error) {
	return s.transactionRepo.GetByID(id)
}

// Update patches the mutable enrichment fields of a transaction.
func (s *TransactionService) Update(ctx context.Context, id string, req request.UpdateTransactionRequest) (model.Transaction, error) {
	return s.transactionRepo.UpdateMutable(ctx, id, req.CleanMerchant, req.CategoryID, req.Notes)
}
