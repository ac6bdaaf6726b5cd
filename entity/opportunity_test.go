package entity

import (
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestOpportunityDeadlinePassed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opp := NewOpportunity("ag", "Feature", MediaPrint, "s1")

	assert.False(t, opp.DeadlinePassed(now), "no deadline never passes")

	future := now.Add(time.Hour)
	opp.Deadline = &future
	assert.False(t, opp.DeadlinePassed(now))

	opp.Deadline = &now
	assert.True(t, opp.DeadlinePassed(now))
}

func TestOpportunityCanMoveTo(t *testing.T) {
	opp := NewOpportunity("ag", "Feature", MediaOnline, "s1")

	assert.True(t, opp.CanMoveTo(OpportunityPaused))
	assert.False(t, opp.CanMoveTo(OpportunityActive))

	opp.Status = OpportunityClosed
	assert.False(t, opp.CanMoveTo(OpportunityActive))
	assert.False(t, opp.CanMoveTo(OpportunityExpired))
}
