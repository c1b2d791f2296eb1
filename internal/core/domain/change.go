package domain

import (
	"fmt"
	"sort"
	"time"
)

// Change is one source row updated after a watermark.
type Change struct {
	ID        string
	UpdatedAt time.Time
}

// ChangeBatch is an ascending run of changes for one kind, bounded by the
// batch size plus any rows tied with its last UpdatedAt. That timestamp is
// the kind's next watermark candidate.
type ChangeBatch []Change

// IDs returns the identifiers in batch order.
func (b ChangeBatch) IDs() []string {
	ids := make([]string, len(b))
	for i, c := range b {
		ids[i] = c.ID
	}
	return ids
}

// Last returns the newest change in the batch.
func (b ChangeBatch) Last() (Change, bool) {
	if len(b) == 0 {
		return Change{}, false
	}
	return b[len(b)-1], true
}

// Candidate returns the watermark to advance to once the batch is indexed.
// An empty batch leaves since unchanged.
func (b ChangeBatch) Candidate(since time.Time) time.Time {
	last, ok := b.Last()
	if !ok {
		return since
	}
	return last.UpdatedAt
}

// Validate checks every row is strictly newer than since and that the
// batch is in ascending order.
func (b ChangeBatch) Validate(since time.Time) error {
	for i, c := range b {
		if !c.UpdatedAt.After(since) {
			return fmt.Errorf("%w: change %s at %s is not after watermark %s",
				ErrInvariant, c.ID, c.UpdatedAt.Format(time.RFC3339Nano), since.Format(time.RFC3339Nano))
		}
		if i > 0 && c.UpdatedAt.Before(b[i-1].UpdatedAt) {
			return fmt.Errorf("%w: change batch not ascending at %s", ErrInvariant, c.ID)
		}
	}
	return nil
}

// IDSet is a deduplicated set of identifiers.
type IDSet map[string]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts ids into the set.
func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Union adds every member of other.
func (s IDSet) Union(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
