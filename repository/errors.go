package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUnavailable means the database could not be reached
	ErrUnavailable = errors.New("store unavailable")

	// ErrQuery means the database rejected a statement (bad column, bad value)
	ErrQuery = errors.New("store query failed")

	// ErrInvalidTableName means a table name is not a plain SQL identifier
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrInvalidSnapshot means a snapshot cannot be stored as given
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Postgres error codes the store reacts to
const (
	codeUndefinedTable       = "42P01"
	codeTooManyConnections   = "53300"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
	codeCannotConnectNow     = "57P03"
	connectionExceptionClass = "08"
)

// isUndefinedTable reports whether err is Postgres' "relation does not exist"
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable
}

// isConnectionError reports whether err means the database itself is unreachable
func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeTooManyConnections, codeAdminShutdown, codeCrashShutdown, codeCannotConnectNow:
			return true
		}
		return strings.HasPrefix(pgErr.Code, connectionExceptionClass)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return pgconn.Timeout(err) || strings.Contains(err.Error(), "closed pool")
}

// classify wraps err with the store error kind it belongs to.
// Context cancellation is passed through untouched.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrQuery, err)
}
