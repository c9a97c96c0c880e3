package processor

import "github.com/thisisjab/sieve/entity"

// RecordProcessor transforms a record after it is read from storage.
// Implementations must be safe for concurrent use.
type RecordProcessor interface {
	Name() string
	Process(record entity.Record) (entity.Record, error)
}
