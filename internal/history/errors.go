package history

import (
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.HistoryError("could not open run history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.HistoryError("failed to initialize run history schema").Build()

	// ErrRecordFailed indicates writing a run or outcome row failed.
	ErrRecordFailed = errors.HistoryError("failed to record run history").Build()

	// ErrQueryFailed indicates reading history rows failed.
	ErrQueryFailed = errors.HistoryError("failed to query run history").Build()
)

func wrap(sentinel *errors.ClassifiedError, err error) error {
	return errors.HistoryError(sentinel.Message()).WithCause(err).Build()
}
