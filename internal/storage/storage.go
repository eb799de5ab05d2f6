package storage

import "hubScope/internal/model"

// Storage is the sink the log runner appends raw hub and manager logs to.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}
