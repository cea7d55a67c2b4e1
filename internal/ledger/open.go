package ledger

import "fmt"

// Storage drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Open returns the Store for driver. dsn is a file path for sqlite, a
// go-sql-driver DSN for mysql and ignored for memory.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(dsn)
	case DriverMySQL:
		return OpenMySQL(dsn)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", ErrStore, driver)
	}
}
