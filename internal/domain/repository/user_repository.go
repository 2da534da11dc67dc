package repository

import (
	"context"

	"marketchat/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListIDs(ctx context.Context) ([]string, error)
}
