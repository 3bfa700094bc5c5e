package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore/entities"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// Manager owns a database connection and its schema.
type Manager interface {
	// Initialize creates or migrates the schema.
	Initialize(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/database for MySQL).
	Path() string
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
	// Stats returns connection pool statistics.
	Stats() sql.DBStats
	// Close closes the database connection.
	Close() error
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// Open creates the manager for the configured backend.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	if settings == nil {
		return nil, errors.Newf("database settings are nil").
			Component(componentDatastore).
			Category(errors.CategoryConfiguration).
			Build()
	}

	gormLog := logger.NewGormLoggerAdapter(log, settings.SlowThreshold)

	switch strings.ToLower(settings.Type) {
	case "", conf.DatabaseSQLite:
		return NewSQLiteManager(settings.SQLite.Path, gormLog)
	case conf.DatabaseMySQL:
		return NewMySQLManager(&settings.MySQL, gormLog)
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component(componentDatastore).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// baseManager implements the backend independent parts of Manager.
type baseManager struct {
	db *gorm.DB
}

// Initialize creates the schema for all entities.
func (m *baseManager) Initialize(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(entities.All()...); err != nil {
		return dbError(err, "migrate", "schema")
	}
	return nil
}

// DB returns the underlying GORM database.
func (m *baseManager) DB() *gorm.DB {
	return m.db
}

// Ping verifies the connection is alive.
func (m *baseManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return dbError(err, "ping", "connection")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping", "connection")
	}
	return nil
}

// Stats returns connection pool statistics.
func (m *baseManager) Stats() sql.DBStats {
	sqlDB, err := m.db.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

// Close closes the database connection.
func (m *baseManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// SQLiteManager handles a SQLite database file.
type SQLiteManager struct {
	baseManager
	dbPath string
}

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// NewSQLiteManager opens the SQLite database at path. The GORM logger may be nil.
func NewSQLiteManager(path string, gormLog *logger.GormLoggerAdapter) (*SQLiteManager, error) {
	if path == "" {
		path = conf.DefaultSQLitePath
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormConfig(gormLog))
	if err != nil {
		return nil, dbError(err, "open", "sqlite")
	}

	if isMemoryPath(path) {
		// Every connection to :memory: is a separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, dbError(err, "open", "sqlite")
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	}

	return &SQLiteManager{baseManager: baseManager{db: db}, dbPath: path}, nil
}

// sqliteDSN appends the recommended pragmas to path.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
}

func isMemoryPath(path string) bool {
	return path == MemoryPath || strings.Contains(path, "mode=memory")
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// IsMySQL returns false for SQLite manager.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}

// MySQLManager handles a MySQL database.
type MySQLManager struct {
	baseManager
	location string // host:port/database for display
}

// NewMySQLManager connects to MySQL and configures the connection pool.
func NewMySQLManager(cfg *conf.MySQLSettings, gormLog *logger.GormLoggerAdapter) (*MySQLManager, error) {
	db, err := gorm.Open(mysql.Open(mysqlDSN(cfg)), gormConfig(gormLog))
	if err != nil {
		return nil, dbError(err, "open", "mysql")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(err, "open", "mysql")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{
		baseManager: baseManager{db: db},
		location:    fmt.Sprintf("%s/%s", mysqlAddr(cfg), cfg.Database),
	}, nil
}

// mysqlDSN builds the driver DSN so credentials are escaped correctly.
func mysqlDSN(cfg *conf.MySQLSettings) string {
	dsn := mysqldriver.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = mysqlAddr(cfg)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Loc = time.Local
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

func mysqlAddr(cfg *conf.MySQLSettings) string {
	port := cfg.Port
	if port == 0 {
		port = conf.DefaultMySQLPort
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}

// Path returns host:port/database.
func (m *MySQLManager) Path() string {
	return m.location
}

// IsMySQL returns true for MySQL manager.
func (m *MySQLManager) IsMySQL() bool {
	return true
}

func gormConfig(gormLog *logger.GormLoggerAdapter) *gorm.Config {
	if gormLog == nil {
		return &gorm.Config{Logger: gormlogger.Discard}
	}
	return &gorm.Config{Logger: gormLog}
}
