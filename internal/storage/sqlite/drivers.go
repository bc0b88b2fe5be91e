package sqlite

import (
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, registered as "sqlite"

	"github.com/Sandr0x00/mijia/internal/storage"
)

// dsn builds the connection string for path. The two drivers spell the
// busy timeout pragma differently.
func dsn(driver, path string, busyTimeout time.Duration) (string, error) {
	ms := busyTimeout.Milliseconds()
	switch driver {
	case storage.DriverModernc:
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_time_format=sqlite", path, ms), nil
	case storage.DriverCgo:
		return fmt.Sprintf("file:%s?_busy_timeout=%d", path, ms), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}
