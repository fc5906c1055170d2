// Package datastore opens and migrates the species catalog database.
package datastore

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/datastore/entities"
	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/logger"
)

const (
	// MemoryPath opens a private in-memory SQLite database.
	MemoryPath = ":memory:"

	dbConnectTimeout = 10 * time.Second
	defaultMySQLPort = "3306"
)

// Manager defines the catalog database lifecycle.
type Manager interface {
	// Initialize creates or updates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/database for MySQL).
	Path() string
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// models lists every entity migrated by Initialize.
func models() []any {
	return []any{&entities.Species{}}
}

func gormConfig(slowQuery time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(GetLogger(), slowQuery),
		TranslateError: true,
	}
}

// Open creates the manager selected by settings and initializes its schema.
func Open(settings *conf.DatabaseSettings) (Manager, error) {
	var (
		m   Manager
		err error
	)

	switch strings.ToLower(settings.Type) {
	case "mysql":
		m, err = NewMySQLManager(&MySQLConfig{
			Host:      settings.MySQL.Host,
			Port:      settings.MySQL.Port,
			Username:  settings.MySQL.Username,
			Password:  settings.MySQL.Password,
			Database:  settings.MySQL.Database,
			SlowQuery: settings.SlowQuery,
		})
	case "", "sqlite":
		m, err = NewSQLiteManager(SQLiteConfig{Path: settings.SQLite.Path, SlowQuery: settings.SlowQuery})
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}

	if err := m.Initialize(); err != nil {
		_ = m.Close()
		return nil, err
	}

	GetLogger().Info("catalog database ready",
		logger.String("path", m.Path()),
		logger.Bool("mysql", m.IsMySQL()))
	return m, nil
}

// SQLiteConfig holds SQLite connection options.
type SQLiteConfig struct {
	// Path is the database file, or MemoryPath.
	Path      string
	SlowQuery time.Duration
}

// SQLiteManager handles the catalog database for SQLite.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens an SQLite catalog database.
func NewSQLiteManager(cfg SQLiteConfig) (*SQLiteManager, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		dbPath = "wildlife.db"
	}

	inMemory := dbPath == MemoryPath
	dsn := dbPath
	if !inMemory {
		dbPath = filepath.Clean(dbPath)
		// Build DSN with recommended SQLite pragmas
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg.SlowQuery))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open sqlite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", dbPath).
			Build()
	}

	if inMemory {
		// Every connection to :memory: is a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &SQLiteManager{db: db, dbPath: dbPath}, nil
}

// Initialize creates or updates the schema.
func (m *SQLiteManager) Initialize() error {
	return migrate(m.db)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}

// IsMySQL returns false for SQLite.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}

// MySQLConfig holds MySQL connection options.
type MySQLConfig struct {
	Host      string
	Port      string
	Username  string
	Password  string
	Database  string
	SlowQuery time.Duration
}

// DSN builds the connection string with proper credential escaping and timeouts.
func (c *MySQLConfig) DSN() string {
	port := c.Port
	if port == "" {
		port = defaultMySQLPort
	}
	cfg := mysqldriver.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = dbConnectTimeout
	cfg.ReadTimeout = dbConnectTimeout
	cfg.WriteTimeout = dbConnectTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// MySQLManager handles the catalog database for MySQL.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// NewMySQLManager opens a MySQL catalog database.
func NewMySQLManager(cfg *MySQLConfig) (*MySQLManager, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, errors.Newf("mysql host and database are required").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	port := cfg.Port
	if port == "" {
		port = defaultMySQLPort
	}
	return newMySQLManager(cfg.DSN(), cfg.SlowQuery,
		fmt.Sprintf("%s/%s", net.JoinHostPort(cfg.Host, port), cfg.Database))
}

// newMySQLManager opens dsn and applies pool settings.
func newMySQLManager(dsn string, slowQuery time.Duration, location string) (*MySQLManager, error) {
	db, err := gorm.Open(mysql.Open(dsn), gormConfig(slowQuery))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open mysql database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("location", location).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{db: db, location: location}, nil
}

// Initialize creates or updates the schema.
func (m *MySQLManager) Initialize() error {
	return migrate(m.db)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns host:port/database.
func (m *MySQLManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	return closeDB(m.db)
}

// IsMySQL returns true for MySQL.
func (m *MySQLManager) IsMySQL() bool {
	return true
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models()...); err != nil {
		return errors.New(fmt.Errorf("failed to migrate catalog schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}
	return backfillSearchColumns(db)
}

// backfillSearchColumns folds names of rows written before the search
// columns existed.
func backfillSearchColumns(db *gorm.DB) error {
	var updated int
	var batch []*entities.Species
	writer := db.Session(&gorm.Session{NewDB: true})
	result := db.
		Where("(search_common = '' AND common_name <> '') OR (search_scientific = '' AND scientific_name <> '')").
		FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for _, s := range batch {
				if err := writer.Save(s).Error; err != nil {
					return err
				}
			}
			updated += len(batch)
			return nil
		})
	if result.Error != nil {
		return errors.New(fmt.Errorf("failed to backfill search columns: %w", result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "backfill_search").
			Build()
	}
	if updated > 0 {
		GetLogger().Info("backfilled species search columns", logger.Int("rows", updated))
	}
	return nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
