// Package batch partitions large id lists into bounded chunks and applies a
// mutation per chunk, collecting partial failures instead of aborting.
package batch

import (
	"context"

	"github.com/google/uuid"
)

const (
	MinChunkSize     = 10
	MaxChunkSize     = 500
	DefaultChunkSize = 100
)

// Mutate applies one atomic mutation to a chunk of ids. A chunk where some
// ids match nothing is still a success; only a store-level fault is an error.
type Mutate func(ctx context.Context, chunk []uuid.UUID) error

// Failure records one id that belonged to a failed chunk, with the chunk's
// error as reason.
type Failure struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// Aggregate is the outcome of a batched run. Failed ids are never dropped
// from the report.
type Aggregate struct {
	Requested int       `json:"requested"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Run splits ids into consecutive chunks of at most chunkSize and applies
// mutate to each chunk sequentially. A failing chunk is recorded and the run
// continues with the next chunk. chunkSize is clamped to [MinChunkSize,
// MaxChunkSize]; zero or negative selects DefaultChunkSize.
func Run(ctx context.Context, ids []uuid.UUID, chunkSize int, mutate Mutate) Aggregate {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	} else if chunkSize < MinChunkSize {
		chunkSize = MinChunkSize
	} else if chunkSize > MaxChunkSize {
		chunkSize = MaxChunkSize
	}

	agg := Aggregate{Requested: len(ids)}

	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		if err := mutate(ctx, chunk); err != nil {
			agg.Failed += len(chunk)
			for _, id := range chunk {
				agg.Failures = append(agg.Failures, Failure{ID: id, Reason: err.Error()})
			}
			continue
		}
		agg.Succeeded += len(chunk)
	}

	return agg
}
