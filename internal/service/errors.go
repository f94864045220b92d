package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	appErrors "github.com/noah-isme/lesson-planner-api/pkg/errors"
)

// storeFailure classifies a repository error as 503 when the database could not
// be reached and 500 otherwise.
func storeFailure(err error, message string) *appErrors.Error {
	if isUnavailable(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
