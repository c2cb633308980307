package tasks

import "context"

// Store port: keyed, TTL-bounded storage for task records. Get returns
// ErrNotFound for ids that were never created or whose retention elapsed.
type Store interface {
	Put(ctx context.Context, t *AnalysisTask) error
	Get(ctx context.Context, id TaskID) (*AnalysisTask, error)
}

// Queue port: durable at-least-once delivery of task ids to workers.
// Dequeue blocks until an id is available or the context is done; the
// returned ack must be called after processing so the id is not
// redelivered. A crashed worker leaves the id eligible for redelivery.
type Queue interface {
	Enqueue(ctx context.Context, id TaskID) error
	Dequeue(ctx context.Context) (TaskID, func(), error)
}

// Archive port: optional durable history of terminal tasks.
type Archive interface {
	Save(ctx context.Context, t *AnalysisTask) error
	Latest(ctx context.Context, limit int) ([]*AnalysisTask, error)
}

// ReportStore port: optional object storage for terminal report documents.
type ReportStore interface {
	UploadReport(ctx context.Context, key string, data []byte) (string, error)
}
