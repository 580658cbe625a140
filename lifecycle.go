package knot

import (
	"fmt"
	"log/slog"
)

// Initializer is the initialize hook. It is invoked once after successful
// construction, after the placeholder rewrite for implementations. An error
// fails the resolution and nothing is cached.
type Initializer interface {
	Initialize() error
}

// Disposable is the destroy hook. The provider whose cache holds the instance
// invokes it on disposal, in reverse creation order.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// disposeAll runs destroy hooks in reverse creation order. A failing hook is
// logged and never stops the remaining hooks; all failures are returned.
func disposeAll(disposables []any, logger *slog.Logger) []error {
	var errs []error
	for i := len(disposables) - 1; i >= 0; i-- {
		d, ok := disposables[i].(Disposable)
		if !ok {
			continue
		}
		if err := d.Close(); err != nil {
			logger.Error("destroy hook failed",
				"service", fmt.Sprintf("%T", d),
				"error", err)
			errs = append(errs, err)
		}
	}
	return errs
}

// closeQuietly disposes an instance that was constructed but never cached,
// such as the loser of a concurrent factory race.
func closeQuietly(instance any, logger *slog.Logger) {
	d, ok := instance.(Disposable)
	if !ok {
		return
	}
	if err := d.Close(); err != nil {
		logger.Error("destroy hook failed",
			"service", fmt.Sprintf("%T", d),
			"error", err)
	}
}
