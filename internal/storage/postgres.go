package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stockgate/stockgate/internal/models"
)

// PostgresStore is the AccountStore used in production, backed by the
// database named in DB_URI. The accounts table is created on first run.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to the database and migrates the accounts
// table if it does not exist yet.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&models.Account{}); err != nil {
		return nil, fmt.Errorf("migrate accounts table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Create(ctx context.Context, name, lastName, email string) (*models.Account, error) {
	key, err := NewAPIKey()
	if err != nil {
		return nil, err
	}
	account := models.Account{
		ID:        uuid.NewString(),
		Name:      name,
		LastName:  lastName,
		Email:     email,
		APIKey:    key,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &account, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, apiKey string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return &account, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
