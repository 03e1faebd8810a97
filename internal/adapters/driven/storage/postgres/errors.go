package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// storageError wraps err with ErrStorage. Failures that may clear on
// retry (lost connections, deadlocks, serialisation failures, server
// shutdown) additionally wrap ErrTransient.
func storageError(op string, err error) error {
	if transient(err) {
		return fmt.Errorf("%w: %w: %s: %w", domain.ErrStorage, domain.ErrTransient, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "40001", code == "40P01", code == "55P03":
			return true // serialization/deadlock/lock_not_available
		case strings.HasPrefix(code, "08"):
			return true // connection_exception
		case code == "53300", code == "57P01", code == "57P02", code == "57P03":
			return true // too_many_connections/admin_shutdown/crash_shutdown/cannot_connect_now
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
