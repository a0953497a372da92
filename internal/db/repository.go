package db

import (
	"go.uber.org/zap"
)

// Repository handles database operations for submissions, subscriptions,
// dashboard notifications, and admin users.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new repository
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}
