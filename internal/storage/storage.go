package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/liamashdown/arbscan/internal/config"
	"github.com/liamashdown/arbscan/internal/feed"
	"github.com/liamashdown/arbscan/internal/market"
	"github.com/liamashdown/arbscan/internal/metrics"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 500

// DB wraps the GORM connection to the quote feed database
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New connects to the feed database and verifies the connection
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	conn, err := gorm.Open(mysql.Open(cfg.FeedDatabaseDSN), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Feed database connection established")

	return &DB{conn: conn, log: log}, nil
}

func newGormLogger(log *logrus.Logger) logger.Interface {
	return logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates the quotes table (for development only)
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(&QuoteRow{})
}

// LoadQuotes reads every quote whose game date falls inside r.
// DB satisfies feed.Source.
func (db *DB) LoadQuotes(ctx context.Context, r feed.DateRange) ([]market.RawQuote, error) {
	start := time.Now()

	var rows []QuoteRow
	err := db.quoteQuery(ctx, r).Find(&rows).Error
	metrics.RecordFeedRequest("mysql", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}

	quotes := make([]market.RawQuote, 0, len(rows))
	for _, row := range rows {
		quotes = append(quotes, row.RawQuote())
	}

	db.log.WithFields(logrus.Fields{
		"rows":  len(quotes),
		"start": r.Start,
		"end":   r.End,
	}).Debug("Loaded quotes from feed database")

	return quotes, nil
}

func (db *DB) quoteQuery(ctx context.Context, r feed.DateRange) *gorm.DB {
	q := db.conn.WithContext(ctx).Model(&QuoteRow{})
	if r.Start != "" {
		q = q.Where("game_date >= ?", r.Start)
	}
	if r.End != "" {
		q = q.Where("game_date <= ?", r.End)
	}
	return q.Order("id ASC")
}

// InsertQuotes writes quotes in batches; used to seed the feed from a CSV export
func (db *DB) InsertQuotes(ctx context.Context, quotes []market.RawQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	rows := make([]*QuoteRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, NewQuoteRow(q))
	}
	if err := db.conn.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert quotes: %w", err)
	}
	return nil
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
