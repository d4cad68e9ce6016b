package recorder

import "VolSentinel/internal/model"

// NoopRecorder is used when no datastore is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCycle(_ *model.VbiResult) error { return nil }
func (n *NoopRecorder) RecordHeartbeat(_ int64) error        { return nil }
func (n *NoopRecorder) Close() error                         { return nil }
