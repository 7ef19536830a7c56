package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderingTokensIncrease(t *testing.T) {
	prev := NewOrderingToken()
	for i := 0; i < 100; i++ {
		next := NewOrderingToken()
		assert.Negative(t, CompareTokens(prev, next))
		prev = next
	}
}

func TestCompareTokensEqual(t *testing.T) {
	tok := NewOrderingToken()
	assert.Zero(t, CompareTokens(tok, tok))
}

func TestSnapshotCriteriaMatches(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	snap := Snapshot{SequenceNr: 50, Timestamp: base}

	tests := []struct {
		name     string
		criteria SnapshotCriteria
		want     bool
	}{
		{name: "unbounded", criteria: SnapshotCriteria{}, want: true},
		{name: "within both bounds", criteria: SnapshotCriteria{MaxSequenceNr: 50, MaxTimestamp: base}, want: true},
		{name: "sequence above bound", criteria: SnapshotCriteria{MaxSequenceNr: 49}, want: false},
		{name: "timestamp above bound", criteria: SnapshotCriteria{MaxTimestamp: base.Add(-time.Second)}, want: false},
		{name: "only sequence bound", criteria: SnapshotCriteria{MaxSequenceNr: 100}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(snap))
		})
	}
}
