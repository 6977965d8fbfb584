package infra

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStudentTableMissing is returned when the configured table does not exist.
var ErrStudentTableMissing = errors.New("student table not found")

// mysqlNoSuchTable is ER_NO_SUCH_TABLE.
const mysqlNoSuchTable = 1146

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// MySQLStudentSource reads raw student rows from a table of the institution's
// MySQL database. Every query goes through the circuit breaker so a downed
// source fails fast instead of piling up connections.
type MySQLStudentSource struct {
	db    *gorm.DB
	table string
	cb    *CircuitBreaker
}

// NewMySQLStudentSource opens the MySQL pool. table must be a plain identifier.
func NewMySQLStudentSource(dsn, table string, cb *CircuitBreaker) (*MySQLStudentSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid student table name %q", table)
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	return NewStudentSource(db, table, cb), nil
}

// NewStudentSource wraps an already opened connection. Tests use it with SQLite.
func NewStudentSource(db *gorm.DB, table string, cb *CircuitBreaker) *MySQLStudentSource {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &MySQLStudentSource{db: db, table: table, cb: cb}
}

// Table returns the source table name.
func (s *MySQLStudentSource) Table() string { return s.table }

// Breaker exposes the circuit breaker for health reporting.
func (s *MySQLStudentSource) Breaker() *CircuitBreaker { return s.cb }

// FetchRows returns every row of the table as column → value maps.
// A missing table is a configuration error answered by a reachable database,
// so it is returned as ErrStudentTableMissing without counting against the
// breaker.
func (s *MySQLStudentSource) FetchRows(ctx context.Context) ([]map[string]interface{}, error) {
	var (
		rows    []map[string]interface{}
		missing bool
	)
	err := s.cb.Execute(func() error {
		err := s.db.WithContext(ctx).Table(s.table).Find(&rows).Error
		if isMissingTable(err) {
			missing = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if missing {
		return nil, fmt.Errorf("%w: %s", ErrStudentTableMissing, s.table)
	}
	return rows, nil
}

// isMissingTable matches MySQL ER_NO_SUCH_TABLE and its SQLite equivalent.
func isMissingTable(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoSuchTable
	}
	return strings.Contains(err.Error(), "no such table")
}
