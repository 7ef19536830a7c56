// Package cassandra implements journal.Store on Apache Cassandra. The event
// log lives in a messages table keyed by (persistence_id, partition_nr) and
// clustered by sequence_nr; tag views and delete markers live in their own
// tables in the same keyspace.
package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/config"
)

// Client wraps a gocql session. The session is not bound to a keyspace;
// every statement qualifies its table with the configured keyspace so that
// schema creation can run over the same connection.
type Client struct {
	session          *gocql.Session
	config           *config.Cassandra
	readConsistency  gocql.Consistency
	writeConsistency gocql.Consistency
	log              *zap.Logger
}

// NewClient connects to the Cassandra cluster with the given configuration.
func NewClient(ctx context.Context, cfg *config.Cassandra, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to Cassandra",
		zap.Strings("hosts", cfg.Hosts),
		zap.Int("port", cfg.Port),
		zap.String("keyspace", cfg.Keyspace))

	readCons, err := gocql.ParseConsistencyWrapper(cfg.ReadConsistency)
	if err != nil {
		return nil, fmt.Errorf("invalid read consistency %q: %w", cfg.ReadConsistency, err)
	}
	writeCons, err := gocql.ParseConsistencyWrapper(cfg.WriteConsistency)
	if err != nil {
		return nil, fmt.Errorf("invalid write consistency %q: %w", cfg.WriteConsistency, err)
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Port = cfg.Port
	cluster.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	cluster.ConnectTimeout = time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond
	cluster.PageSize = cfg.PageSize
	cluster.Consistency = readCons
	if cfg.User != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.User,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		log.Error("Failed to connect to Cassandra", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}

	// Verify connectivity before handing the session out.
	if err := session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec(); err != nil {
		session.Close()
		log.Error("Failed to ping Cassandra", zap.Error(err))
		return nil, fmt.Errorf("failed to ping Cassandra: %w", err)
	}

	log.Info("Cassandra connection established successfully")

	return &Client{
		session:          session,
		config:           cfg,
		readConsistency:  readCons,
		writeConsistency: writeCons,
		log:              log,
	}, nil
}

// Session returns the underlying gocql session.
func (c *Client) Session() *gocql.Session {
	return c.session
}

// Keyspace returns the configured keyspace name.
func (c *Client) Keyspace() string {
	return c.config.Keyspace
}

// ReadConsistency returns the configured read consistency level.
func (c *Client) ReadConsistency() gocql.Consistency {
	return c.readConsistency
}

// WriteConsistency returns the configured write consistency level.
func (c *Client) WriteConsistency() gocql.Consistency {
	return c.writeConsistency
}

// Ping checks if the Cassandra connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec()
}

// Close closes the Cassandra session.
func (c *Client) Close() error {
	c.log.Info("Closing Cassandra session")
	c.session.Close()
	return nil
}
