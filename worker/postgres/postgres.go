package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tbxark/intakebot/worker"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// createdAt is kept as a fixed-width ISO 8601 string so it sorts by time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type workerRow struct {
	ID           string  `gorm:"primaryKey;column:id"`
	FullName     string  `gorm:"column:full_name;not null"`
	Category     string  `gorm:"column:category;not null;index"`
	Location     string  `gorm:"column:location;not null"`
	PhoneNumber  string  `gorm:"column:phone_number;not null"`
	Experience   int     `gorm:"column:experience;not null"`
	Rating       float64 `gorm:"column:rating;not null;default:0"`
	ReviewCount  int     `gorm:"column:review_count;not null;default:0"`
	Availability int     `gorm:"column:availability;not null;default:1"`
	CreatedAt    string  `gorm:"column:created_at;not null"`
}

func (workerRow) TableName() string {
	return "workers"
}

// Store keeps worker records in postgres through gorm.
type Store struct {
	db *gorm.DB
}

var _ worker.Store = (*Store)(nil)

// Open connects to dsn and migrates the workers table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	s := NewStore(db)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Init(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&workerRow{}); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, r worker.Record) error {
	if err := worker.Validate(r); err != nil {
		return err
	}
	row := toRow(r)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", worker.ErrDuplicateID, r.ID)
		}
		return fmt.Errorf("postgres: insert %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (worker.Record, bool, error) {
	var row workerRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return worker.Record{}, false, nil
	}
	if err != nil {
		return worker.Record{}, false, fmt.Errorf("postgres: get %s: %w", id, err)
	}
	r, err := fromRow(row)
	if err != nil {
		return worker.Record{}, false, err
	}
	return r, true, nil
}

func (s *Store) Update(ctx context.Context, r worker.Record) error {
	if err := worker.Validate(r); err != nil {
		return err
	}
	row := toRow(r)
	res := s.db.WithContext(ctx).Model(&workerRow{}).Where("id = ?", r.ID).Updates(map[string]any{
		"full_name":    row.FullName,
		"category":     row.Category,
		"location":     row.Location,
		"phone_number": row.PhoneNumber,
		"experience":   row.Experience,
		"rating":       row.Rating,
		"review_count": row.ReviewCount,
		"availability": row.Availability,
	})
	if res.Error != nil {
		return fmt.Errorf("postgres: update %s: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", worker.ErrNotFound, r.ID)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&workerRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("postgres: delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, category worker.Category) ([]worker.Record, error) {
	q := s.db.WithContext(ctx).Order("created_at, id")
	if category != "" {
		q = q.Where("category = ?", string(category))
	}
	var rows []workerRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	out := make([]worker.Record, 0, len(rows))
	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func toRow(r worker.Record) workerRow {
	availability := 0
	if r.Availability {
		availability = 1
	}
	return workerRow{
		ID:           r.ID,
		FullName:     r.FullName,
		Category:     string(r.Category),
		Location:     r.Location,
		PhoneNumber:  r.PhoneNumber,
		Experience:   r.Experience,
		Rating:       r.Rating,
		ReviewCount:  r.ReviewCount,
		Availability: availability,
		CreatedAt:    r.CreatedAt.UTC().Format(timeLayout),
	}
}

func fromRow(row workerRow) (worker.Record, error) {
	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return worker.Record{}, fmt.Errorf("postgres: parse createdAt %q: %w", row.CreatedAt, err)
	}
	return worker.Record{
		ID:           row.ID,
		FullName:     row.FullName,
		Category:     worker.Category(row.Category),
		Location:     row.Location,
		PhoneNumber:  row.PhoneNumber,
		Experience:   row.Experience,
		Rating:       row.Rating,
		ReviewCount:  row.ReviewCount,
		Availability: row.Availability != 0,
		CreatedAt:    createdAt,
	}, nil
}
