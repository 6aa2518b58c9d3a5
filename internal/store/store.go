package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GoPolymarket/range-market/internal/market"
	"github.com/GoPolymarket/range-market/internal/pricing"
)

// MarketRecord is the persisted form of a market. Curve parameters and range
// lists are stored as JSON columns.
type MarketRecord struct {
	ID              string                  `gorm:"primaryKey;size:36"`
	Title           string                  `gorm:"not null"`
	Unit            string                  `gorm:"not null"`
	Category        string                  `gorm:"index;default:general"`
	Description     string
	DescriptionHTML string
	Expiry          time.Time               `gorm:"not null"`
	DomainMin       float64                 `gorm:"not null"`
	DomainMax       float64                 `gorm:"not null"`
	Prior           pricing.PriorJSON       `gorm:"serializer:json"`
	Stats           pricing.Stats           `gorm:"serializer:json"`
	Coefficients    []float64               `gorm:"serializer:json"`
	Ranges          []pricing.Range         `gorm:"serializer:json"`
	Seed            []pricing.WeightedRange `gorm:"serializer:json"`
	Tx              string
	CreatedAt       time.Time `gorm:"index"`
}

func (MarketRecord) TableName() string { return "markets" }

func recordFrom(m market.Market) MarketRecord {
	return MarketRecord{
		ID:              m.ID,
		Title:           m.Title,
		Unit:            m.Unit,
		Category:        m.Category,
		Description:     m.Description,
		DescriptionHTML: m.DescriptionHTML,
		Expiry:          m.Expiry,
		DomainMin:       m.Domain.Min,
		DomainMax:       m.Domain.Max,
		Prior:           m.Prior,
		Stats:           m.Stats,
		Coefficients:    m.Coefficients,
		Ranges:          m.Ranges,
		Seed:            m.Seed,
		Tx:              m.Tx,
		CreatedAt:       m.CreatedAt,
	}
}

func (r MarketRecord) market() market.Market {
	return market.Market{
		ID:              r.ID,
		Title:           r.Title,
		Unit:            r.Unit,
		Category:        r.Category,
		Description:     r.Description,
		DescriptionHTML: r.DescriptionHTML,
		Expiry:          r.Expiry.UTC(),
		Domain:          pricing.Domain{Min: r.DomainMin, Max: r.DomainMax},
		Prior:           r.Prior,
		Stats:           r.Stats,
		Coefficients:    r.Coefficients,
		Ranges:          r.Ranges,
		Seed:            r.Seed,
		Tx:              r.Tx,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

// Options selects the database backing the repository.
type Options struct {
	Driver string
	DSN    string
}

// Open connects to the configured database and migrates the markets table.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(opts.DSN)
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	if err := db.AutoMigrate(&MarketRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Repository implements market.Repository on top of gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, id string) (market.Market, error) {
	var rec MarketRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return market.Market{}, market.ErrMarketNotFound
	}
	if err != nil {
		return market.Market{}, fmt.Errorf("get market %s: %w", id, err)
	}
	return rec.market(), nil
}

func (r *Repository) Create(ctx context.Context, m *market.Market) error {
	rec := recordFrom(*m)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("create market %s: %w", m.ID, err)
	}
	return nil
}

// List returns the newest markets first.
func (r *Repository) List(ctx context.Context, limit int) ([]market.Market, error) {
	var recs []MarketRecord
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	out := make([]market.Market, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.market())
	}
	return out, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
