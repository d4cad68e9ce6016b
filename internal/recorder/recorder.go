package recorder

import "VolSentinel/internal/model"

// Recorder durably records one event per computation cycle. Calls are
// best-effort from the orchestrator's point of view: a recording failure is
// logged and counted but never affects the computation itself.
type Recorder interface {
	RecordCycle(res *model.VbiResult) error
	RecordHeartbeat(tsUnixMs int64) error
	Close() error
}
