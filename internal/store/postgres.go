package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"roleplay-chat/backend/pkg/config"
)

// record is the gorm model behind PostgresBackend
type record struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "roleplay_kv" }

// PostgresBackend keeps records in a postgres table through gorm
type PostgresBackend struct {
	db *gorm.DB
}

// NewPostgresBackend connects with config.NewDB and migrates the table
func NewPostgresBackend(ctx context.Context, cfg *config.Config) (*PostgresBackend, error) {
	db, err := config.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newPostgresBackend(ctx, db)
}

func newPostgresBackend(ctx context.Context, db *gorm.DB) (*PostgresBackend, error) {
	if err := db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

func (p *PostgresBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var rec record
	err := p.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

func (p *PostgresBackend) Write(ctx context.Context, key string, value []byte) error {
	rec := record{Key: key, Value: value, UpdatedAt: time.Now()}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	return p.db.WithContext(ctx).Delete(&record{}, "key = ?", key).Error
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	return config.TestConnection(ctx, p.db)
}

func (p *PostgresBackend) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
