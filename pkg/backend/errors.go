package backend

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError reports a failure to establish or validate a connection.
// Code carries the engine-specific error code when one is available; the
// raw engine error is retained and reachable via errors.Unwrap.
type ConnectionError struct {
	Engine  EngineType
	Code    string
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s connection failed (%s): %s", e.Engine, e.Code, e.Message)
	}
	return fmt.Sprintf("%s connection failed: %s", e.Engine, e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DatabaseError reports a query or execute failure on an established
// connection. Same code/detail contract as ConnectionError.
type DatabaseError struct {
	Engine  EngineType
	Code    string
	Message string
	Err     error
}

func (e *DatabaseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s query failed (%s): %s", e.Engine, e.Code, e.Message)
	}
	return fmt.Sprintf("%s query failed: %s", e.Engine, e.Message)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func connErr(engine EngineType, msg string, err error) *ConnectionError {
	return &ConnectionError{Engine: engine, Code: engineCode(err), Message: msg, Err: err}
}

func dbErr(engine EngineType, msg string, err error) *DatabaseError {
	return &DatabaseError{Engine: engine, Code: engineCode(err), Message: msg, Err: err}
}

// engineCode extracts the native error code from a driver error, if any.
func engineCode(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	return ""
}
