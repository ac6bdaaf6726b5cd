package status

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"prism/entity"
	"prism/internal/database/memstore"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []entity.Event
}

func (r *recorder) Publish(_ context.Context, e entity.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store *memstore.Store
	pub   *recorder
	svc   *Service
	opp   *entity.Opportunity
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memstore.New(),
		pub:   &recorder{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.pub, discard())
	f.svc.SetClock(func() time.Time { return f.now })

	f.opp = entity.NewOpportunity("agency-1", "Morning show interview", entity.MediaBroadcast, "aopr-1")
	deadline := f.now.Add(72 * time.Hour)
	f.opp.Deadline = &deadline
	require.NoError(t, f.store.InsertOpportunity(context.Background(), f.opp))
	return f
}

func (f *fixture) assign(t *testing.T, clientID string) *entity.ClientOpportunityStatus {
	t.Helper()
	rows, err := f.svc.Assign(context.Background(), f.opp, []string{clientID}, "aopr-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return &rows[0]
}

// force puts a row into state directly, bypassing the edge check.
func (f *fixture) force(t *testing.T, st *entity.ClientOpportunityStatus, state entity.ResponseState) *entity.ClientOpportunityStatus {
	t.Helper()
	next := *st
	next.ResponseState = state
	ok, err := f.store.SwapStatus(context.Background(), &next, st.ResponseState, st.Version)
	require.NoError(t, err)
	require.True(t, ok)
	stored, err := f.store.GetStatus(context.Background(), st.ID)
	require.NoError(t, err)
	return stored
}

func TestApplyTransition_Grid(t *testing.T) {
	for _, from := range entity.ResponseStates() {
		for _, to := range entity.ResponseStates() {
			if from == to {
				continue
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				f := newFixture(t)
				st := f.assign(t, "client-1")
				if from != entity.StatePending {
					st = f.force(t, st, from)
				}

				got, err := f.svc.ApplyTransition(context.Background(), st.ID, TransitionInput{Target: to, ActorID: "user-1"})
				if from.CanTransitionTo(to) {
					require.NoError(t, err)
					assert.Equal(t, to, got.ResponseState)
					return
				}
				var te *entity.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, from, te.From)
				assert.Equal(t, to, te.To)

				stored, _ := f.store.GetStatus(context.Background(), st.ID)
				assert.Equal(t, from, stored.ResponseState, "rejected transition leaves the row untouched")
			})
		}
	}
}

func TestApplyTransition_InterestedThenPendingRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.assign(t, "client-1")
	notes := "Happy to do it, <b>mornings</b> only"

	got, err := f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateInterested, Notes: &notes, ActorID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, entity.StateInterested, got.ResponseState)
	require.NotNil(t, got.RespondedAt)
	assert.Equal(t, f.now, *got.RespondedAt)
	assert.Equal(t, "Happy to do it, mornings only", got.NotesForAgency)
	assert.Equal(t, st.Version+1, got.Version)

	tasks, err := f.store.ListTasks(ctx, entity.TaskFilter{OpportunityID: f.opp.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, entity.PriorityMedium, tasks[0].Priority)
	assert.Equal(t, entity.SystemActor, tasks[0].CreatedBy)
	assert.Equal(t, entity.StateInterested, tasks[0].TriggerState)
	assert.Equal(t, *f.opp.Deadline, *tasks[0].DueDate)
	assert.Contains(t, tasks[0].Title, f.opp.Title)

	_, err = f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StatePending, ActorID: "user-1"})
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestApplyTransition_AcceptedKeepsFirstResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.assign(t, "client-1")

	_, err := f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateInterested})
	require.NoError(t, err)
	first := f.now

	f.now = f.now.Add(time.Hour)
	got, err := f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateAccepted})
	require.NoError(t, err)
	assert.Equal(t, first, *got.RespondedAt)

	tasks, _ := f.store.ListTasks(ctx, entity.TaskFilter{OpportunityID: f.opp.ID})
	require.Len(t, tasks, 2)
	assert.Equal(t, entity.PriorityHigh, tasks[1].Priority)
}

func TestApplyTransition_DeclineHasNoTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.assign(t, "client-1")

	got, err := f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateDeclined, DeclineReason: "Conflict of interest"})
	require.NoError(t, err)
	assert.Equal(t, "Conflict of interest", got.DeclineReason)

	tasks, _ := f.store.ListTasks(ctx, entity.TaskFilter{OpportunityID: f.opp.ID})
	assert.Empty(t, tasks)
}

func TestApplyTransition_SameStateIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.assign(t, "client-1")
	published := f.pub.count()

	got, err := f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StatePending})
	require.NoError(t, err)
	assert.Equal(t, st.Version, got.Version)
	assert.Nil(t, got.RespondedAt)
	assert.Equal(t, published, f.pub.count())

	st = f.force(t, st, entity.StateDeclined)
	_, err = f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateDeclined})
	assert.NoError(t, err, "declined to declined is not an error")
}

func TestApplyTransition_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	st := f.assign(t, "client-1")

	_, err := f.svc.ApplyTransition(context.Background(), st.ID, TransitionInput{Target: "maybe"})
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestApplyTransition_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyTransition(context.Background(), "missing", TransitionInput{Target: entity.StateAccepted})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestApplyTransition_PublishesOneEvent(t *testing.T) {
	f := newFixture(t)
	st := f.assign(t, "client-1")
	before := f.pub.count()

	_, err := f.svc.ApplyTransition(context.Background(), st.ID, TransitionInput{Target: entity.StateAccepted, ActorID: "user-1"})
	require.NoError(t, err)

	require.Equal(t, before+1, f.pub.count())
	e := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, entity.EventStatusUpdated, e.Type)
	assert.Equal(t, entity.StateAccepted, e.NewState)
	assert.Equal(t, entity.StatePending, e.PreviousState)
	assert.Equal(t, st.ID, e.StatusID)
	assert.Equal(t, "client-1", e.ClientID)
	assert.Equal(t, "agency-1", e.AgencyID)
}

type staleRepo struct {
	*memstore.Store
	snapshot *entity.ClientOpportunityStatus
}

func (r *staleRepo) GetStatus(_ context.Context, _ string) (*entity.ClientOpportunityStatus, error) {
	s := *r.snapshot
	return &s, nil
}

func TestApplyTransition_StaleReadIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.assign(t, "client-1")

	_, err := f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateDeclined})
	require.NoError(t, err)
	published := f.pub.count()

	stale := NewService(&staleRepo{Store: f.store, snapshot: st}, f.pub, discard())
	_, err = stale.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateAccepted})
	assert.ErrorIs(t, err, entity.ErrConcurrentModification)
	assert.Equal(t, published, f.pub.count())

	stored, _ := f.store.GetStatus(ctx, st.ID)
	assert.Equal(t, entity.StateDeclined, stored.ResponseState)
}

func TestApplyTransition_ConcurrentWritersSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.assign(t, "client-1")
	before := f.pub.count()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		target := entity.StateAccepted
		if i%2 == 1 {
			target = entity.StateDeclined
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: target})
			if err != nil {
				assert.True(t, errors.Is(err, entity.ErrInvalidTransition) || errors.Is(err, entity.ErrConcurrentModification), err.Error())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, before+1, f.pub.count())
	stored, _ := f.store.GetStatus(ctx, st.ID)
	assert.Contains(t, []entity.ResponseState{entity.StateAccepted, entity.StateDeclined}, stored.ResponseState)
	assert.Equal(t, st.Version+1, stored.Version)
}

func TestResetToPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := f.assign(t, "client-1")

	_, err := f.svc.ResetToPending(ctx, st.ID, "aopr-1")
	assert.ErrorIs(t, err, entity.ErrNotDeclined)

	_, err = f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateDeclined, DeclineReason: "busy"})
	require.NoError(t, err)

	got, err := f.svc.ResetToPending(ctx, st.ID, "aopr-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatePending, got.ResponseState)
	assert.Nil(t, got.RespondedAt)
	assert.Empty(t, got.DeclineReason)

	e := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, entity.StatePending, e.NewState)
	assert.Equal(t, entity.StateDeclined, e.PreviousState)

	_, err = f.svc.ApplyTransition(ctx, st.ID, TransitionInput{Target: entity.StateInterested})
	assert.NoError(t, err, "restored row answers again")
}

func TestAssign_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Assign(ctx, f.opp, []string{"client-1", "client-2"}, "aopr-1")
	require.NoError(t, err)
	require.Len(t, first, 2)
	for _, st := range first {
		assert.Equal(t, entity.StatePending, st.ResponseState)
		assert.Equal(t, f.opp.AgencyID, st.AgencyID)
	}
	published := f.pub.count()
	assert.Equal(t, 2, published)

	second, err := f.svc.Assign(ctx, f.opp, []string{"client-1", "client-3"}, "aopr-1")
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, published+1, f.pub.count())

	rows, _ := f.store.ListStatuses(ctx, entity.StatusFilter{OpportunityID: f.opp.ID})
	assert.Len(t, rows, 3)
}
