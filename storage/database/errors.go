package database

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// IsBusy reports whether err is a transient contention failure worth
// retrying: lock_not_available, serialization_failure or deadlock_detected.
func IsBusy(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "55P03", "40001", "40P01":
		return true
	}
	return false
}
