package relational

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

// classify wraps err with op, marking transport failures as
// domain.ErrConnection. Errors caused by ctx itself are left unmarked.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && isConnectionError(err) {
		return domain.ConnectionError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isConnectionState(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isConnectionState(string(pqErr.Code))
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// isConnectionState reports SQLSTATEs meaning the server went away:
// class 08 (connection exception), 57P01-57P03 (admin/crash shutdown,
// cannot connect now) and 53300 (too many connections).
func isConnectionState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"):
		return true
	case code == "57P01", code == "57P02", code == "57P03", code == "53300":
		return true
	}
	return false
}
