package docstore

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fieldRow is one field of one field-map.
type fieldRow struct {
	DocKey string `gorm:"column:doc_key;primaryKey;type:varchar(191)"`
	Field  string `gorm:"column:field;primaryKey;type:varchar(191)"`
	Value  string `gorm:"column:value;type:text"`
}

func (fieldRow) TableName() string { return "doc_fields" }

// memberRow is one member of one index set.
type memberRow struct {
	SetKey string `gorm:"column:set_key;primaryKey;type:varchar(191)"`
	Member string `gorm:"column:member;primaryKey;type:varchar(191)"`
}

func (memberRow) TableName() string { return "doc_set_members" }

// GormStore maps field-maps and sets onto two SQL tables.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm opens a database with the given driver ("postgres" or "sqlite").
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, unavailable("connect", err)
	}
	return db, nil
}

// NewGormStore creates a GormStore and migrates its tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&fieldRow{}, &memberRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate document tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) WriteFields(ctx context.Context, key string, fields map[string]string) error {
	if err := upsertFields(s.db.WithContext(ctx), key, fields); err != nil {
		return unavailable("write fields", err)
	}
	return nil
}

func (s *GormStore) ReadFields(ctx context.Context, key string) (map[string]string, error) {
	var rows []fieldRow
	if err := s.db.WithContext(ctx).Where("doc_key = ?", key).Find(&rows).Error; err != nil {
		return nil, unavailable("read fields", err)
	}
	fields := make(map[string]string, len(rows))
	for _, row := range rows {
		fields[row.Field] = row.Value
	}
	return fields, nil
}

func (s *GormStore) AddToSet(ctx context.Context, setKey, member string) error {
	if err := insertMember(s.db.WithContext(ctx), setKey, member); err != nil {
		return unavailable("add to set", err)
	}
	return nil
}

func (s *GormStore) ListSet(ctx context.Context, setKey string) ([]string, error) {
	var members []string
	err := s.db.WithContext(ctx).Model(&memberRow{}).
		Where("set_key = ?", setKey).
		Pluck("member", &members).Error
	if err != nil {
		return nil, unavailable("list set", err)
	}
	return members, nil
}

func (s *GormStore) SetCardinality(ctx context.Context, setKey string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&memberRow{}).Where("set_key = ?", setKey).Count(&n).Error; err != nil {
		return 0, unavailable("set cardinality", err)
	}
	return n, nil
}

// WriteIndexed writes the field rows and the set members in one transaction.
func (s *GormStore) WriteIndexed(ctx context.Context, key string, fields map[string]string, member string, setKeys ...string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertFields(tx, key, fields); err != nil {
			return err
		}
		for _, setKey := range setKeys {
			if err := insertMember(tx, setKey, member); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("write indexed", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func upsertFields(db *gorm.DB, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	rows := make([]fieldRow, 0, len(fields))
	for field, value := range fields {
		rows = append(rows, fieldRow{DocKey: key, Field: field, Value: value})
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}, {Name: "field"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
}

func insertMember(db *gorm.DB, setKey, member string) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&memberRow{SetKey: setKey, Member: member}).Error
}
