package db

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/yungbote/completion-engine/internal/domain"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

type Config struct {
	Driver     string         `yaml:"driver"`
	Postgres   PostgresConfig `yaml:"postgres"`
	SQLitePath string         `yaml:"sqlite_path"`
	MaxOpen    int            `yaml:"max_open_conns"`
	MaxIdle    int            `yaml:"max_idle_conns"`
	Debug      bool           `yaml:"debug"`
}

type Service struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

// Open connects to the configured database. SQLite is limited to one open
// connection so transactions serialize instead of failing with SQLITE_BUSY.
func Open(log *logger.Logger, cfg Config) (*Service, error) {
	serviceLog := log.With("service", "DatabaseService")
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverPostgres
	}

	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: driver == DriverSQLite,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Warn),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}
	if cfg.Debug {
		gcfg.Logger = gormLogger.Default.LogMode(gormLogger.Info)
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
	case DriverSQLite:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = "completion-engine.db"
		}
		dialector = sqlite.Open(path + "?_busy_timeout=5000&_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	serviceLog.Info("Connecting to database...", "driver", driver)
	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		serviceLog.Error("Failed to connect to database", "driver", driver, "error", err)
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	switch {
	case driver == DriverSQLite:
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpen > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}

	return &Service{db: gdb, driver: driver, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := s.db.AutoMigrate(types.Models()...); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := ensureProgressIndexes(s.db); err != nil {
		s.log.Error("Index creation failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
