package escalation

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

func (r *recorder) types() []entity.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type responderFunc func(ctx context.Context, q entity.Question) (*entity.AiAnswer, error)

func (f responderFunc) Answer(ctx context.Context, q entity.Question) (*entity.AiAnswer, error) {
	return f(ctx, q)
}

func confident(text string) Responder {
	return responderFunc(func(_ context.Context, _ entity.Question) (*entity.AiAnswer, error) {
		return &entity.AiAnswer{Text: text, Confident: true, Confidence: 0.92, Model: "test-model"}, nil
	})
}

type fixture struct {
	store  *memstore.Store
	pub    *recorder
	engine *Engine
	opp    *entity.Opportunity
}

func newFixture(t *testing.T, responder Responder) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), pub: &recorder{}}
	f.engine = NewEngine(f.store, f.pub, slog.New(slog.NewTextHandler(io.Discard, nil)), 50*time.Millisecond)
	if responder != nil {
		f.engine.SetResponder(responder)
	}
	f.opp = entity.NewOpportunity("agency-1", "Podcast guest slot", entity.MediaPodcast, "aopr-1")
	f.opp.Summary = "Forty minute episode on supply chains."
	require.NoError(t, f.store.InsertOpportunity(context.Background(), f.opp))
	return f
}

func TestSubmitClientQuestion_Answered(t *testing.T) {
	var asked entity.Question
	f := newFixture(t, responderFunc(func(_ context.Context, q entity.Question) (*entity.AiAnswer, error) {
		asked = q
		return &entity.AiAnswer{Text: "It is <b>recorded</b> remotely.", Confident: true, Confidence: 0.9}, nil
	}))

	res, err := f.engine.SubmitClientQuestion(context.Background(), f.opp.ID, "client-1", "user-1", "Is it remote?")
	require.NoError(t, err)
	assert.False(t, res.Escalated)
	assert.Equal(t, int64(1), res.Question.Seq)
	require.NotNil(t, res.Reply)
	assert.Equal(t, entity.MessageAiResponse, res.Reply.Type)
	assert.Equal(t, "It is recorded remotely.", res.Reply.Body)
	assert.Equal(t, int64(2), res.Reply.Seq)

	assert.Equal(t, f.opp.ID, asked.Opportunity.ID)
	assert.Equal(t, "Is it remote?", asked.Text)
	assert.Empty(t, asked.History)

	assert.Equal(t, []entity.EventType{entity.EventChatMessage, entity.EventChatMessage}, f.pub.types())

	thread, _ := f.store.GetThread(context.Background(), res.Thread.ID)
	assert.False(t, thread.IsEscalated)
}

func TestSubmitClientQuestion_Escalates(t *testing.T) {
	cases := []struct {
		name      string
		responder Responder
		reason    string
	}{
		{name: "no responder", responder: nil, reason: ReasonNoResponder},
		{
			name: "error",
			responder: responderFunc(func(context.Context, entity.Question) (*entity.AiAnswer, error) {
				return nil, errors.New("upstream 500")
			}),
			reason: ReasonResponderError,
		},
		{
			name: "timeout",
			responder: responderFunc(func(ctx context.Context, _ entity.Question) (*entity.AiAnswer, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			reason: ReasonTimeout,
		},
		{
			name: "not confident",
			responder: responderFunc(func(context.Context, entity.Question) (*entity.AiAnswer, error) {
				return &entity.AiAnswer{Text: "Possibly", Confident: false, Confidence: 0.3}, nil
			}),
			reason: ReasonNotConfident,
		},
		{
			name: "empty answer",
			responder: responderFunc(func(context.Context, entity.Question) (*entity.AiAnswer, error) {
				return &entity.AiAnswer{Text: "  ", Confident: true, Confidence: 1}, nil
			}),
			reason: ReasonEmptyAnswer,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.responder)
			ctx := context.Background()

			res, err := f.engine.SubmitClientQuestion(ctx, f.opp.ID, "client-1", "user-1", "What is the fee?")
			require.NoError(t, err)
			assert.True(t, res.Escalated)
			require.NotNil(t, res.Reply)
			assert.Equal(t, entity.MessageSystem, res.Reply.Type)
			assert.True(t, res.Reply.IsEscalated)
			assert.Equal(t, tc.reason, res.Reply.Metadata["reason"])

			thread, _ := f.store.GetThread(ctx, res.Thread.ID)
			assert.True(t, thread.IsEscalated)
			require.NotNil(t, thread.EscalatedAt)

			assert.Equal(t, []entity.EventType{
				entity.EventChatMessage,
				entity.EventChatMessage,
				entity.EventChatEscalated,
			}, f.pub.types())
			escalated := f.pub.events[2]
			assert.Empty(t, entity.AudienceFor(escalated).ClientID)
			require.NotNil(t, escalated.Escalated)
			assert.True(t, *escalated.Escalated)

			queue, err := f.engine.EscalatedThreads(ctx, "agency-1")
			require.NoError(t, err)
			assert.Len(t, queue, 1)
		})
	}
}

// failingReplies rejects AI responses and stores everything else.
type failingReplies struct {
	*memstore.Store
}

func (s failingReplies) AppendMessage(ctx context.Context, msg *entity.ChatMessage) error {
	if msg.Type == entity.MessageAiResponse {
		return errors.New("write concern timeout")
	}
	return s.Store.AppendMessage(ctx, msg)
}

func TestSubmitClientQuestion_ReplyNotStoredEscalates(t *testing.T) {
	f := newFixture(t, confident("Yes, it is paid."))
	f.engine = NewEngine(failingReplies{f.store}, f.pub, slog.New(slog.NewTextHandler(io.Discard, nil)), 50*time.Millisecond)
	f.engine.SetResponder(confident("Yes, it is paid."))
	ctx := context.Background()

	res, err := f.engine.SubmitClientQuestion(ctx, f.opp.ID, "client-1", "user-1", "Is it paid?")
	require.NoError(t, err)
	assert.True(t, res.Escalated)
	require.NotNil(t, res.Reply)
	assert.Equal(t, entity.MessageSystem, res.Reply.Type)
	assert.Equal(t, ReasonResponderError, res.Reply.Metadata["reason"])
	assert.Equal(t, int64(2), res.Reply.Seq)

	msgs, err := f.store.ListMessages(ctx, res.Thread.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.MessageClientQuestion, msgs[0].Type)
	assert.Equal(t, entity.MessageSystem, msgs[1].Type)

	thread, _ := f.store.GetThread(ctx, res.Thread.ID)
	assert.True(t, thread.IsEscalated)
	assert.Equal(t, []entity.EventType{
		entity.EventChatMessage,
		entity.EventChatMessage,
		entity.EventChatEscalated,
	}, f.pub.types())
}

func TestSubmitClientQuestion_CancelledCallerStillCompletes(t *testing.T) {
	f := newFixture(t, confident("Yes."))
	ctx, cancel := context.WithCancel(context.Background())
	f.engine.SetResponder(responderFunc(func(rctx context.Context, _ entity.Question) (*entity.AiAnswer, error) {
		cancel()
		if rctx.Err() != nil {
			return nil, rctx.Err()
		}
		return &entity.AiAnswer{Text: "Yes.", Confident: true, Confidence: 0.8}, nil
	}))

	res, err := f.engine.SubmitClientQuestion(ctx, f.opp.ID, "client-1", "user-1", "Is it paid?")
	require.NoError(t, err)
	assert.False(t, res.Escalated)
	assert.Equal(t, entity.MessageAiResponse, res.Reply.Type)
}

func TestSubmitClientQuestion_Validation(t *testing.T) {
	f := newFixture(t, confident("ok"))
	ctx := context.Background()

	_, err := f.engine.SubmitClientQuestion(ctx, f.opp.ID, "client-1", "user-1", "  <p></p> ")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	long := make([]rune, maxMessageLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = f.engine.SubmitClientQuestion(ctx, f.opp.ID, "client-1", "user-1", string(long))
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = f.engine.SubmitClientQuestion(ctx, "missing", "client-1", "user-1", "hello")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.Empty(t, f.pub.types())
}

func TestSubmitClientQuestion_HistoryAndOrdering(t *testing.T) {
	var mu sync.Mutex
	var histories []int
	f := newFixture(t, responderFunc(func(_ context.Context, q entity.Question) (*entity.AiAnswer, error) {
		mu.Lock()
		histories = append(histories, len(q.History))
		mu.Unlock()
		return &entity.AiAnswer{Text: "answer to " + q.Text, Confident: true, Confidence: 0.9}, nil
	}))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.SubmitClientQuestion(ctx, f.opp.ID, "client-1", "user-1", "question")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	thread, msgs, err := f.engine.ThreadMessages(ctx, f.opp.ID, "client-1", 0, 0)
	require.NoError(t, err)
	require.NotNil(t, thread)
	require.Len(t, msgs, 16)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
		if i%2 == 0 {
			assert.Equal(t, entity.MessageClientQuestion, m.Type)
		} else {
			assert.Equal(t, entity.MessageAiResponse, m.Type, "each answer follows its question")
		}
	}
	assert.ElementsMatch(t, []int{0, 2, 4, 6, 8, 10, 12, 14}, histories)
}

func TestSubmitAgencyResponse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.engine.SubmitClientQuestion(ctx, f.opp.ID, "client-1", "user-1", "Can I bring slides?")
	require.NoError(t, err)
	require.True(t, res.Escalated)
	before := len(f.pub.types())

	msg, err := f.engine.SubmitAgencyResponse(ctx, res.Thread.ID, "aopr-1", "Yes, send them by Friday.")
	require.NoError(t, err)
	assert.Equal(t, entity.MessageAoprResponse, msg.Type)
	assert.Equal(t, int64(3), msg.Seq)

	thread, _ := f.store.GetThread(ctx, res.Thread.ID)
	assert.False(t, thread.IsEscalated)
	assert.Nil(t, thread.EscalatedAt)

	types := f.pub.types()
	require.Len(t, types, before+1)
	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, entity.EventChatMessage, last.Type)
	require.NotNil(t, last.Escalated)
	assert.False(t, *last.Escalated)
	assert.Equal(t, "client-1", entity.AudienceFor(last).ClientID)

	queue, _ := f.engine.EscalatedThreads(ctx, "agency-1")
	assert.Empty(t, queue)

	_, err = f.engine.SubmitAgencyResponse(ctx, "missing", "aopr-1", "hello")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestThreadMessages_NoThread(t *testing.T) {
	f := newFixture(t, nil)

	thread, msgs, err := f.engine.ThreadMessages(context.Background(), f.opp.ID, "client-2", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, thread)
	assert.Empty(t, msgs)
}
