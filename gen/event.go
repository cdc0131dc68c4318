package gen

// Stage identifies a generation phase for progress reporting.
type Stage uint8

const (
	StageScan Stage = iota
	StageEmit
)

// Status describes how far a file has progressed through a stage.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event reports per-file generation progress to an optional sink.
type Event struct {
	File   string
	Stage  Stage
	Status Status
	Err    error
}
