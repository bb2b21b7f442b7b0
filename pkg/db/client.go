package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db/models"
	"github.com/edures/resourcedesk-backend/pkg/db/rotation"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection. In sqlite mode it also owns the
// rotation router and swaps the underlying connection when the active file
// fills up; callers stay unaware of which physical store is active.
type Client struct {
	mu     sync.RWMutex
	conn   *gorm.DB
	router *rotation.Router
	logg   *logger.Logger
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// schema lists every model the sqlite stores must carry; a freshly rotated
// file gets the full schema before serving traffic.
var schema = []any{
	&models.User{},
	&models.InventoryItem{},
	&models.ResourceRequest{},
	&models.RequestLine{},
	&models.Comment{},
	&models.Notification{},
	&models.OutboxEvent{},
	&models.OutboxDLQ{},
}

// New boots a GORM client using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, rot config.RotationConfig, logg *logger.Logger) (*Client, error) {
	if cfg.Driver == "sqlite" {
		return newSQLite(ctx, rot, logg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})

	conn, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	applyPoolSettings(sqlDB, cfg)

	if logg != nil {
		logg.Info(ctx, "database connection established")
	}

	return &Client{conn: conn, logg: logg}, nil
}

func newSQLite(ctx context.Context, rot config.RotationConfig, logg *logger.Logger) (*Client, error) {
	router, err := rotation.NewRouter(rot)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(rot.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating rotation dir: %w", err)
	}
	conn, err := openSQLiteFile(router.Current())
	if err != nil {
		return nil, err
	}
	if logg != nil {
		ctx = logg.WithField(ctx, "db_file", router.Current())
		logg.Info(ctx, "sqlite store opened")
	}
	return &Client{conn: conn, router: router, logg: logg}, nil
}

func openSQLiteFile(path string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite file %s: %w", path, err)
	}
	if err := conn.AutoMigrate(schema...); err != nil {
		return nil, fmt.Errorf("migrating sqlite file %s: %w", path, err)
	}
	return conn, nil
}

func gormConfig() *gorm.Config {
	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)
	return &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// RotationStats surfaces the sqlite ring state, nil in postgres mode.
func (c *Client) RotationStats() []rotation.FileStat {
	if c.router == nil {
		return nil
	}
	return c.router.Stats()
}

// maybeRotate swaps to the next sqlite file when the active one is full.
// Requests already holding the old connection finish against it; only new
// work lands in the next file.
func (c *Client) maybeRotate(ctx context.Context) {
	if c.router == nil || !c.router.ShouldRotate() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.router.ShouldRotate() {
		return
	}
	next := c.router.Advance()
	conn, err := openSQLiteFile(next)
	if err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "sqlite rotation failed, staying on current file", err)
		}
		return
	}
	old := c.conn
	c.conn = conn
	if sqlDB, err := old.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if c.logg != nil {
		ctx = c.logg.WithField(ctx, "db_file", next)
		c.logg.Info(ctx, "rotated to next sqlite file")
	}
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Exec wraps GORM's Exec with context propagation.
func (c *Client) Exec(ctx context.Context, query string, args ...any) *gorm.DB {
	return c.DB().WithContext(ctx).Exec(query, args...)
}

// Raw wraps GORM's Raw with context propagation.
func (c *Client) Raw(ctx context.Context, query string, args ...any) *gorm.DB {
	return c.DB().WithContext(ctx).Raw(query, args...)
}

// WithTx executes fn inside a transaction, rolling back on error/panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	c.maybeRotate(ctx)

	tx := c.DB().WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
