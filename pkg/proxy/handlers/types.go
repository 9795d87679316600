package handlers

import "mercator-hq/iptvrelay/pkg/journal"

// Recorder receives a record for every closed stream.
// *recorder.Recorder satisfies it.
type Recorder interface {
	Record(record *journal.Record) error
}
