package store

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is one persisted document.
type Record struct {
	Key string         `gorm:"primaryKey;size:128"`
	Doc datatypes.JSON `gorm:"not null"`
}

func (Record) TableName() string { return "records" }

// SQL persists documents in postgres while delegating reads, prefix
// scans and subscription fanout to an embedded Memory store loaded at
// open time. The gateway is the single writer, so write-through keeps the
// two views consistent.
type SQL struct {
	db  *gorm.DB
	mem *Memory
}

// OpenSQL connects, migrates and loads every record into memory.
func OpenSQL(dsn string) (*SQL, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate records: %w", err)
	}

	s := &SQL{db: db, mem: NewMemory()}
	var records []Record
	if err := db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	for _, rec := range records {
		var doc Doc
		if err := json.Unmarshal(rec.Doc, &doc); err != nil {
			continue
		}
		_ = s.mem.Create(context.Background(), rec.Key, doc)
	}
	return s, nil
}

func (s *SQL) Create(ctx context.Context, key string, doc Doc) error {
	if err := s.mem.Create(ctx, key, doc); err != nil {
		return err
	}
	return s.persist(ctx, key)
}

func (s *SQL) Patch(ctx context.Context, key string, fields Doc) error {
	if err := s.mem.Patch(ctx, key, fields); err != nil {
		return err
	}
	return s.persist(ctx, key)
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if err := s.mem.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&Record{}, "key = ?", key).Error; err != nil {
		return ErrUnavailable
	}
	return nil
}

func (s *SQL) ReadOnce(ctx context.Context, key string) (Doc, error) {
	return s.mem.ReadOnce(ctx, key)
}

func (s *SQL) List(ctx context.Context, prefix string) (map[string]Doc, error) {
	return s.mem.List(ctx, prefix)
}

func (s *SQL) Subscribe(ctx context.Context, prefix string, fn SnapshotFunc) (UnsubscribeFunc, error) {
	return s.mem.Subscribe(ctx, prefix, fn)
}

func (s *SQL) persist(ctx context.Context, key string) error {
	doc, err := s.mem.ReadOnce(ctx, key)
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	rec := Record{Key: key, Doc: datatypes.JSON(b)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return ErrUnavailable
	}
	return nil
}
