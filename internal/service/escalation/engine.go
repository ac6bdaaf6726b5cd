// Package escalation answers client questions about an opportunity with the
// automated responder and hands the thread to agency staff when it cannot.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/keylock"
	"prism/internal/lib/sanitize"
	"prism/internal/lib/sl"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxMessageLength = 4000
	historyLimit     = 20

	escalationNotice = "Your question has been passed to your agency team. They will reply here shortly."
)

// Escalation reasons stored on the system message.
const (
	ReasonNoResponder    = "no_responder"
	ReasonResponderError = "responder_error"
	ReasonTimeout        = "timeout"
	ReasonNotConfident   = "not_confident"
	ReasonEmptyAnswer    = "empty_answer"
)

// Responder produces an answer or a reason to escalate.
type Responder interface {
	Answer(ctx context.Context, q entity.Question) (*entity.AiAnswer, error)
}

type Repository interface {
	GetOpportunity(ctx context.Context, id string) (*entity.Opportunity, error)

	GetOrCreateThread(ctx context.Context, thread *entity.ChatThread) (*entity.ChatThread, error)
	GetThread(ctx context.Context, id string) (*entity.ChatThread, error)
	FindThread(ctx context.Context, opportunityID, clientID string) (*entity.ChatThread, error)
	// AppendMessage assigns the next sequence number and created_at to msg.
	AppendMessage(ctx context.Context, msg *entity.ChatMessage) error
	SetThreadEscalated(ctx context.Context, threadID string, escalated bool, at time.Time) error
	ListMessages(ctx context.Context, threadID string, afterSeq int64, limit int) ([]entity.ChatMessage, error)
	ListEscalatedThreads(ctx context.Context, agencyID string) ([]entity.ChatThread, error)

	InsertActivity(ctx context.Context, entry *entity.ActivityEntry) error
}

type Publisher interface {
	Publish(ctx context.Context, event entity.Event)
}

type Engine struct {
	repo      Repository
	responder Responder
	pub       Publisher
	locks     *keylock.Locker
	timeout   time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// QuestionResult is what a client question produced: the stored question and
// either the automated answer or the escalation notice.
type QuestionResult struct {
	Thread    *entity.ChatThread  `json:"thread"`
	Question  *entity.ChatMessage `json:"question"`
	Reply     *entity.ChatMessage `json:"reply,omitempty"`
	Escalated bool                `json:"escalated"`
}

func NewEngine(repo Repository, pub Publisher, log *slog.Logger, timeout time.Duration) *Engine {
	return &Engine{
		repo:    repo,
		pub:     pub,
		locks:   keylock.New(),
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log.With(sl.Module("escalation")),
	}
}

// SetResponder wires the automated responder. Without one every question escalates.
func (e *Engine) SetResponder(responder Responder) {
	e.responder = responder
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func cleanBody(text string) (string, error) {
	body := sanitize.Text(text)
	if body == "" {
		return "", fmt.Errorf("%w: message is empty", entity.ErrInvalidInput)
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return "", fmt.Errorf("%w: message exceeds %d characters", entity.ErrInvalidInput, maxMessageLength)
	}
	return body, nil
}

// SubmitClientQuestion stores the question and then answers or escalates it.
// Only a failure to store the question is returned to the caller.
func (e *Engine) SubmitClientQuestion(ctx context.Context, opportunityID, clientID, senderID, text string) (*QuestionResult, error) {
	body, err := cleanBody(text)
	if err != nil {
		return nil, err
	}

	opp, err := e.repo.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	if opp == nil {
		return nil, fmt.Errorf("opportunity %s: %w", opportunityID, entity.ErrNotFound)
	}

	thread, err := e.repo.GetOrCreateThread(ctx, entity.NewChatThread(opp.ID, clientID, opp.AgencyID))
	if err != nil {
		return nil, fmt.Errorf("open thread: %w", err)
	}

	e.locks.Lock(thread.ID)
	defer e.locks.Unlock(thread.ID)

	history, err := e.repo.ListMessages(ctx, thread.ID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	question := entity.NewChatMessage(thread, entity.MessageClientQuestion, senderID, body)
	if err = e.repo.AppendMessage(ctx, question); err != nil {
		return nil, fmt.Errorf("append question: %w", err)
	}
	e.publishMessage(ctx, thread, question, senderID)

	log := e.log.With(
		slog.String("thread_id", thread.ID),
		slog.Int64("seq", question.Seq),
	)

	// The question is stored; the rest runs to completion even if the caller leaves.
	work := context.WithoutCancel(ctx)
	result := &QuestionResult{Thread: thread, Question: question}

	answer, reason := e.ask(work, entity.Question{
		Opportunity: opp,
		ClientID:    clientID,
		Text:        body,
		History:     history,
	})
	if reason == "" {
		reply := entity.NewChatMessage(thread, entity.MessageAiResponse, "", sanitize.Text(answer.Text))
		reply.Metadata = map[string]any{"confidence": answer.Confidence}
		if answer.Model != "" {
			reply.Metadata["model"] = answer.Model
		}
		if err = e.repo.AppendMessage(work, reply); err == nil {
			log.Debug("question answered", slog.Float64("confidence", answer.Confidence))
			e.publishMessage(work, thread, reply, "")
			result.Reply = reply
			return result, nil
		}
		log.With(sl.Err(err)).Error("append ai response")
		reason = ReasonResponderError
	}

	notice, err := e.escalate(work, thread, reason)
	if err != nil {
		log.With(sl.Err(err), slog.String("reason", reason)).Error("escalate thread")
	} else {
		log.Info("thread escalated", slog.String("reason", reason))
	}
	result.Reply = notice
	result.Escalated = true
	return result, nil
}

// ask returns the answer, or an empty answer and the reason to escalate.
func (e *Engine) ask(ctx context.Context, q entity.Question) (*entity.AiAnswer, string) {
	if e.responder == nil {
		return nil, ReasonNoResponder
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	answer, err := e.responder.Answer(ctx, q)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, ReasonTimeout
	case err != nil:
		e.log.With(sl.Err(err)).Warn("responder failed")
		return nil, ReasonResponderError
	case answer == nil || strings.TrimSpace(answer.Text) == "":
		return nil, ReasonEmptyAnswer
	case !answer.Confident:
		return nil, ReasonNotConfident
	}
	return answer, ""
}

func (e *Engine) escalate(ctx context.Context, thread *entity.ChatThread, reason string) (*entity.ChatMessage, error) {
	now := e.now()
	if err := e.repo.SetThreadEscalated(ctx, thread.ID, true, now); err != nil {
		return nil, fmt.Errorf("mark escalated: %w", err)
	}
	thread.IsEscalated = true
	thread.EscalatedAt = &now

	notice := entity.NewChatMessage(thread, entity.MessageSystem, entity.SystemActor, escalationNotice)
	notice.IsEscalated = true
	notice.Metadata = map[string]any{"reason": reason}
	if err := e.repo.AppendMessage(ctx, notice); err != nil {
		return nil, fmt.Errorf("append notice: %w", err)
	}
	e.publishMessage(ctx, thread, notice, entity.SystemActor)

	entry := entity.NewActivityEntry(thread.AgencyID, thread.OpportunityID, thread.ClientID, entity.SystemActor,
		entity.ActivityChatEscalated, map[string]any{"thread_id": thread.ID, "reason": reason})
	if err := e.repo.InsertActivity(ctx, entry); err != nil {
		e.log.With(sl.Err(err)).Warn("record activity")
	}

	e.publish(ctx, entity.Event{
		Type:          entity.EventChatEscalated,
		AgencyID:      thread.AgencyID,
		OpportunityID: thread.OpportunityID,
		ClientID:      thread.ClientID,
		ThreadID:      thread.ID,
		Escalated:     flag(true),
		Message:       notice,
		ActorID:       entity.SystemActor,
		OccurredAt:    now,
	})
	return notice, nil
}

// SubmitAgencyResponse appends a staff reply and clears the escalation flag.
func (e *Engine) SubmitAgencyResponse(ctx context.Context, threadID, staffUserID, text string) (*entity.ChatMessage, error) {
	body, err := cleanBody(text)
	if err != nil {
		return nil, err
	}

	thread, err := e.Thread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	e.locks.Lock(thread.ID)
	defer e.locks.Unlock(thread.ID)

	msg := entity.NewChatMessage(thread, entity.MessageAoprResponse, staffUserID, body)
	if err = e.repo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append response: %w", err)
	}
	if err = e.repo.SetThreadEscalated(ctx, thread.ID, false, e.now()); err != nil {
		e.log.With(sl.Err(err), slog.String("thread_id", thread.ID)).Error("clear escalation")
	}
	thread.IsEscalated = false
	thread.EscalatedAt = nil

	entry := entity.NewActivityEntry(thread.AgencyID, thread.OpportunityID, thread.ClientID, staffUserID,
		entity.ActivityChatAnswered, map[string]any{"thread_id": thread.ID})
	if err = e.repo.InsertActivity(ctx, entry); err != nil {
		e.log.With(sl.Err(err)).Warn("record activity")
	}

	e.publishMessage(ctx, thread, msg, staffUserID)
	return msg, nil
}

func (e *Engine) Thread(ctx context.Context, threadID string) (*entity.ChatThread, error) {
	thread, err := e.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	if thread == nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, entity.ErrNotFound)
	}
	return thread, nil
}

// Messages lists a thread's messages with a sequence above afterSeq, oldest first.
func (e *Engine) Messages(ctx context.Context, threadID string, afterSeq int64, limit int) ([]entity.ChatMessage, error) {
	msgs, err := e.repo.ListMessages(ctx, threadID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// ThreadMessages is Messages addressed by the (opportunity, client) pair.
// A pair without a thread yields a nil thread and no messages.
func (e *Engine) ThreadMessages(ctx context.Context, opportunityID, clientID string, afterSeq int64, limit int) (*entity.ChatThread, []entity.ChatMessage, error) {
	thread, err := e.repo.FindThread(ctx, opportunityID, clientID)
	if err != nil {
		return nil, nil, fmt.Errorf("find thread: %w", err)
	}
	if thread == nil {
		return nil, []entity.ChatMessage{}, nil
	}
	msgs, err := e.Messages(ctx, thread.ID, afterSeq, limit)
	if err != nil {
		return nil, nil, err
	}
	return thread, msgs, nil
}

func (e *Engine) EscalatedThreads(ctx context.Context, agencyID string) ([]entity.ChatThread, error) {
	threads, err := e.repo.ListEscalatedThreads(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("list escalated: %w", err)
	}
	return threads, nil
}

func (e *Engine) publishMessage(ctx context.Context, thread *entity.ChatThread, msg *entity.ChatMessage, actorID string) {
	e.publish(ctx, entity.Event{
		Type:          entity.EventChatMessage,
		AgencyID:      thread.AgencyID,
		OpportunityID: thread.OpportunityID,
		ClientID:      thread.ClientID,
		ThreadID:      thread.ID,
		Escalated:     flag(thread.IsEscalated),
		Message:       msg,
		ActorID:       actorID,
		OccurredAt:    msg.CreatedAt,
	})
}

func (e *Engine) publish(ctx context.Context, event entity.Event) {
	if e.pub == nil {
		return
	}
	e.pub.Publish(ctx, event)
}

func flag(b bool) *bool {
	return &b
}
