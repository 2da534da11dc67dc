package repository

import (
	"context"

	"marketchat/internal/domain/entity"
)

type TransactionRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	// FindBySubject returns the most recent transaction for the product
	// between buyer and seller.
	FindBySubject(ctx context.Context, productID, buyerID, sellerID string) (*entity.Transaction, error)
}
