package domain

import (
	"fmt"
	"time"
)

// Stage is one step of a synchronisation pass.
type Stage int

// Pass stages in execution order.
const (
	StageReadWatermarks Stage = iota
	StageExtractPerson
	StageExtractGenre
	StageExtractMovie
	StageResolveUnion
	StageFetchAggregates
	StageTransform
	StageBulkIndex
	StageAdvanceWatermarks
)

var stageNames = [...]string{
	"read_watermarks",
	"extract_person",
	"extract_genre",
	"extract_movie",
	"resolve_union",
	"fetch_aggregates",
	"transform",
	"bulk_index",
	"advance_watermarks",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MarshalText writes the stage name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, text)
}

// ExtractStage returns the extraction stage for kind.
func ExtractStage(kind EntityKind) Stage {
	switch kind {
	case KindPerson:
		return StageExtractPerson
	case KindGenre:
		return StageExtractGenre
	default:
		return StageExtractMovie
	}
}

// PassStatus is the terminal state of a pass.
type PassStatus string

const (
	// PassCompleted means every stage ran and watermarks advanced.
	PassCompleted PassStatus = "completed"

	// PassAbandoned means connection backoff was exhausted. No watermark moved.
	PassAbandoned PassStatus = "abandoned"

	// PassFailed means a checkpoint or invariant failure ended the pass.
	PassFailed PassStatus = "failed"
)

// PassReport describes the outcome of one synchronisation pass.
type PassReport struct {
	// ID identifies the pass in logs.
	ID string `json:"id"`

	// StartedAt is when the pass started.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the pass reached a terminal state.
	EndedAt time.Time `json:"ended_at"`

	// Status is the terminal state.
	Status PassStatus `json:"status"`

	// Attempts counts tries including backoff retries.
	Attempts int `json:"attempts"`

	// Stages lists the stages reached by the final attempt, in order.
	Stages []Stage `json:"stages"`

	// Changes counts changed rows per kind.
	Changes map[EntityKind]int `json:"changes"`

	// Candidates are the per-kind watermark candidates of the final attempt.
	Candidates Watermarks `json:"candidates,omitempty"`

	// Watermarks are the persisted watermarks when the pass ended.
	Watermarks Watermarks `json:"watermarks,omitempty"`

	// FilmsAffected is the size of the union of affected films.
	FilmsAffected int `json:"films_affected"`

	// Indexed counts accepted documents across all indices.
	Indexed int `json:"indexed"`

	// Rejected counts documents the index refused.
	Rejected int `json:"rejected"`

	// Error holds the failure message for abandoned and failed passes.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the pass ran.
func (r *PassReport) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
