package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/pathakanu/waremind/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLitePath is used when no PostgreSQL URL is configured.
const DefaultSQLitePath = "reminders.db"

// New creates a GORM database connection.
// When databaseURL is provided PostgreSQL is used, otherwise SQLite is used.
func New(databaseURL string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	if databaseURL != "" {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	} else {
		db, err = gorm.Open(sqlite.Open(DefaultSQLitePath), gormConfig)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.Reminder{}); err != nil {
		return nil, err
	}

	logBackend(db)
	return db, nil
}

func logBackend(db *gorm.DB) {
	dialector := db.Dialector.Name()
	switch strings.ToLower(dialector) {
	case "postgres":
		log.Printf("database: connected to PostgreSQL")
	case "sqlite":
		log.Printf("database: using SQLite %s", DefaultSQLitePath)
	default:
		log.Printf("database: connected via %s", dialector)
	}
}

// Persister stores the reminder collection in the reminders table.
type Persister struct {
	db *gorm.DB
}

// NewPersister wraps an open, migrated connection.
func NewPersister(db *gorm.DB) *Persister {
	return &Persister{db: db}
}

// LoadAll reads every reminder in insertion order.
func (p *Persister) LoadAll() ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := p.db.Order("created_at ASC").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	return reminders, nil
}

// ReplaceAll swaps the table contents for reminders in a single transaction.
func (p *Persister) ReplaceAll(reminders []model.Reminder) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Reminder{}).Error; err != nil {
			return fmt.Errorf("clear reminders: %w", err)
		}
		if len(reminders) == 0 {
			return nil
		}
		rows := make([]model.Reminder, len(reminders))
		copy(rows, reminders)
		if err := tx.CreateInBatches(&rows, 100).Error; err != nil {
			return fmt.Errorf("insert reminders: %w", err)
		}
		return nil
	})
}
