// Package mongodb implements the billing repositories on MongoDB. A thin
// collection wrapper adds circuit-breaker protection and structured logging
// around the driver.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/crewfleet/billing-service/domain/entity"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

// Client wraps a MongoDB connection shared by all billing repositories.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	logger   *zap.Logger
}

// NewClient connects and verifies the deployment is reachable.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 15 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(connectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "ping mongodb")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mongodb",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Lookup misses are answers, not store failures; they must not
		// trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || entity.IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mongodb circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	logger.Info("connected to mongodb", zap.String("database", cfg.Database))

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		breaker:  breaker,
		timeout:  queryTimeout,
		logger:   logger,
	}, nil
}

// Collection returns a breaker-protected handle on a collection.
func (c *Client) Collection(name string) *Collection {
	return &Collection{
		name:       name,
		collection: c.database.Collection(name),
		breaker:    c.breaker,
		timeout:    c.timeout,
		logger:     c.logger,
	}
}

// Close disconnects the underlying client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
