package core

// Metrics receives counters from the sync engine. The HTTP server's
// prometheus registry implements it.
type Metrics interface {
	RecordPollTick(result string)
	RecordSkippedTick()
	RecordPlaybackEvent(event string)
	RecordRefresh(trigger, status string)
	RecordPlacement(kind, status string)
	RecordSession(outcome string)
	RecordCommand(command, status string)
	RecordError(component, errorType string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordPollTick(string) {}
func (NopMetrics) RecordSkippedTick() {}
func (NopMetrics) RecordPlaybackEvent(string) {}
func (NopMetrics) RecordRefresh(string, string) {}
func (NopMetrics) RecordPlacement(string, string) {}
func (NopMetrics) RecordSession(string) {}
func (NopMetrics) RecordCommand(string, string) {}
func (NopMetrics) RecordError(string, string) {}
