package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// entry is one row of the ledger table.
type entry struct {
	NS        string    `gorm:"primaryKey;column:ns;size:64"`
	Key       string    `gorm:"primaryKey;column:entry_key;size:191"`
	Text      string    `gorm:"column:text_value;not null;default:''"`
	Int       int64     `gorm:"column:int_value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (entry) TableName() string { return "ledger_entries" }

// GormStore is a Store backed by a single SQL table through GORM.
type GormStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite ledger at path and migrates it.
func OpenSQLite(path string) (*GormStore, error) {
	// Fail early if the parent directory does not exist.
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrStore, err)
	}

	// One writer at a time; SQLite would otherwise answer concurrent
	// upserts with SQLITE_BUSY.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	return NewGormStore(db)
}

// OpenMySQL connects to a MySQL ledger and migrates it.
func OpenMySQL(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: open mysql: %w", ErrStore, err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return NewGormStore(db)
}

// NewGormStore migrates the ledger table on db and returns a store using it.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %w", ErrStore, err)
	}
	return &GormStore{db: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

func (s *GormStore) find(ctx context.Context, db *gorm.DB, ns, key string) (*entry, error) {
	var e entry
	err := db.WithContext(ctx).Where("ns = ? AND entry_key = ?", ns, key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return &e, nil
}

// Get implements Store.
func (s *GormStore) Get(ctx context.Context, ns, key string) (string, bool, error) {
	e, err := s.find(ctx, s.db, ns, key)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.Text, true, nil
}

// PutIfAbsent implements Store with INSERT ... ON CONFLICT DO NOTHING.
func (s *GormStore) PutIfAbsent(ctx context.Context, ns, key, value string) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry{NS: ns, Key: key, Text: value, UpdatedAt: time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("%w: %w", ErrStore, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetInt implements Store.
func (s *GormStore) GetInt(ctx context.Context, ns, key string) (int64, bool, error) {
	e, err := s.find(ctx, s.db, ns, key)
	if err != nil || e == nil {
		return 0, false, err
	}
	return e.Int, true, nil
}

// Increment implements Store. The upsert and the read-back share one
// transaction, so the returned value includes exactly this delta.
func (s *GormStore) Increment(ctx context.Context, ns, key string, delta int64) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ns"}, {Name: "entry_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"int_value":  gorm.Expr("int_value + ?", delta),
				"updated_at": now,
			}),
		}).Create(&entry{NS: ns, Key: key, Int: delta, UpdatedAt: now}).Error
		if err != nil {
			return err
		}

		e, err := s.find(ctx, tx, ns, key)
		if err != nil {
			return err
		}
		if e == nil {
			return errors.New("row vanished after upsert")
		}
		total = e.Int
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStore) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return total, nil
}

// SetInt implements Store.
func (s *GormStore) SetInt(ctx context.Context, ns, key string, value int64) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ns"}, {Name: "entry_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"int_value":  value,
			"updated_at": now,
		}),
	}).Create(&entry{NS: ns, Key: key, Int: value, UpdatedAt: now}).Error
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return sqlDB.Close()
}
