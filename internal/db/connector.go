package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"github.com/vvka-141/sfdeploy/internal/retry"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// Opener turns a driver config into a database handle.
type Opener func(cfg *gosnowflake.Config) (*sql.DB, error)

func openSnowflake(cfg *gosnowflake.Config) (*sql.DB, error) {
	return sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, *cfg)), nil
}

// SnowflakeConnector opens sessions with automatic retry on transient failures.
type SnowflakeConnector struct {
	config        *sfdeploy.ConnectionConfig
	credentials   CredentialProvider
	retryExecutor *retry.Executor
	open          Opener
	logger        sfdeploy.Logger
}

// ConnectorOption configures a SnowflakeConnector.
type ConnectorOption func(*SnowflakeConnector)

// WithOpener replaces the gosnowflake opener, e.g. with a sqlmock handle.
func WithOpener(open Opener) ConnectorOption {
	return func(c *SnowflakeConnector) { c.open = open }
}

// WithRetryExecutor replaces the default retry policy.
func WithRetryExecutor(executor *retry.Executor) ConnectorOption {
	return func(c *SnowflakeConnector) { c.retryExecutor = executor }
}

// DefaultRetryExecutor returns the retry policy used for connecting and for
// task state operations.
func DefaultRetryExecutor(logger sfdeploy.Logger) *retry.Executor {
	strategy := retry.NewExponentialBackoff(sfdeploy.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(sfdeploy.DefaultRetryInitialDelay),
		retry.WithMaxDelay(sfdeploy.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewSnowflakeErrorClassifier(), strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("transient warehouse error (attempt %d), retrying in %v: %v", attempt+1, delay, err)
		})
}

// NewSnowflakeConnector creates a connector.
// Panics if config, credentials or logger is nil.
func NewSnowflakeConnector(
	config *sfdeploy.ConnectionConfig,
	credentials CredentialProvider,
	logger sfdeploy.Logger,
	opts ...ConnectorOption,
) *SnowflakeConnector {
	if config == nil {
		panic("config cannot be nil")
	}
	if credentials == nil {
		panic("credentials cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	c := &SnowflakeConnector{
		config:      config,
		credentials: credentials,
		open:        openSnowflake,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retryExecutor == nil {
		c.retryExecutor = DefaultRetryExecutor(logger)
	}
	return c
}

// NewConnector creates the connector matching config.AuthMethod.
func NewConnector(config *sfdeploy.ConnectionConfig, logger sfdeploy.Logger, opts ...ConnectorOption) (sfdeploy.Connector, error) {
	credentials, err := NewCredentialProvider(config)
	if err != nil {
		return nil, err
	}
	return NewSnowflakeConnector(config, credentials, logger, opts...), nil
}

// DriverConfig builds the gosnowflake configuration, credentials included.
func (c *SnowflakeConnector) DriverConfig() (*gosnowflake.Config, error) {
	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	cfg := &gosnowflake.Config{
		Account:      c.config.Account,
		User:         c.config.User,
		Role:         c.config.Role,
		Warehouse:    c.config.Warehouse,
		Database:     c.config.Database,
		Application:  sfdeploy.ApplicationName,
		LoginTimeout: c.config.LoginTimeout,
	}
	if err := c.credentials.Apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Connect opens a session pinned to a single connection.
func (c *SnowflakeConnector) Connect(ctx context.Context) (sfdeploy.Session, error) {
	cfg, err := c.DriverConfig()
	if err != nil {
		return nil, err
	}

	c.logger.Verbose("Connecting to %s as %s (%s)", c.config.Target(), c.config.User, c.credentials)

	var session *Session
	err = c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		handle, err := c.open(cfg)
		if err != nil {
			return err
		}
		s, err := NewSession(ctx, handle, c.retryExecutor)
		if err != nil {
			handle.Close()
			return err
		}
		if err := s.conn.PingContext(ctx); err != nil {
			s.Close()
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sfdeploy.ErrConnectionFailed, wrapConnectionError(err, c.config))
	}

	return session, nil
}

// wrapConnectionError adds actionable guidance to common login failures.
func wrapConnectionError(err error, config *sfdeploy.ConnectionConfig) error {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "incorrect username or password"):
		return fmt.Errorf(`authentication failed for user %q

Possible causes:
  - Wrong password (check $SNOWFLAKE_PASSWORD)
  - Wrong user name (check $SNOWFLAKE_USER)

Original error: %w`, config.User, err)

	case strings.Contains(errStr, "jwt token is invalid"):
		return fmt.Errorf(`key pair authentication failed for user %q

Possible causes:
  - The public key is not registered: ALTER USER %s SET RSA_PUBLIC_KEY='...'
  - The account identifier is wrong (JWT issuer must match)
  - The private key does not belong to this user

Original error: %w`, config.User, config.User, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "404"):
		return fmt.Errorf(`cannot reach account %q

Possible causes:
  - Account identifier is misspelled (expected <orgname>-<account_name> or <locator>.<region>)
  - Network or proxy blocks *.snowflakecomputing.com

Original error: %w`, config.Account, err)

	case strings.Contains(errStr, "role") && strings.Contains(errStr, "not authorized"):
		return fmt.Errorf(`role %q is not granted to user %q

Original error: %w`, config.Role, config.User, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection to %s timed out

Original error: %w`, config.Target(), err)

	default:
		return fmt.Errorf("failed to connect to %s: %w", config.Target(), err)
	}
}
