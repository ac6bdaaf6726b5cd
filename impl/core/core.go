package core

import (
	"context"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sl"
	"prism/internal/service/escalation"
	"prism/internal/service/status"
	"time"
)

type Repository interface {
	CheckApiKey(key string) (string, error)
	GenerateApiKey(username string) (string, error)

	InsertClient(ctx context.Context, client *entity.Client) error
	GetClient(ctx context.Context, id string) (*entity.Client, error)
	ListClients(ctx context.Context, agencyID string) ([]entity.Client, error)

	InsertOpportunity(ctx context.Context, opp *entity.Opportunity) error
	GetOpportunity(ctx context.Context, id string) (*entity.Opportunity, error)
	ListOpportunities(ctx context.Context, filter entity.OpportunityFilter) ([]entity.Opportunity, error)
	SwapOpportunityStatus(ctx context.Context, id string, from, to entity.OpportunityStatus, at time.Time) (bool, error)

	GetStatus(ctx context.Context, id string) (*entity.ClientOpportunityStatus, error)
	FindStatus(ctx context.Context, opportunityID, clientID string) (*entity.ClientOpportunityStatus, error)
	ListStatuses(ctx context.Context, filter entity.StatusFilter) ([]entity.ClientOpportunityStatus, error)

	InsertTask(ctx context.Context, task *entity.FollowUpTask) error
	GetTask(ctx context.Context, id string) (*entity.FollowUpTask, error)
	UpdateTask(ctx context.Context, task *entity.FollowUpTask) error
	ListTasks(ctx context.Context, filter entity.TaskFilter) ([]entity.FollowUpTask, error)

	InsertActivity(ctx context.Context, entry *entity.ActivityEntry) error
	ListActivity(ctx context.Context, agencyID, opportunityID string, limit int) ([]entity.ActivityEntry, error)
}

type StatusService interface {
	ApplyTransition(ctx context.Context, statusID string, in status.TransitionInput) (*entity.ClientOpportunityStatus, error)
	Assign(ctx context.Context, opp *entity.Opportunity, clientIDs []string, actorID string) ([]entity.ClientOpportunityStatus, error)
}

type RestoreService interface {
	CreateRequest(ctx context.Context, opportunityID, clientID, requestingUserID, reason string) (*entity.RestoreRequest, error)
	Approve(ctx context.Context, requestID, reviewerID, notes string) (*entity.RestoreRequest, error)
	Deny(ctx context.Context, requestID, reviewerID, notes string) (*entity.RestoreRequest, error)
	Get(ctx context.Context, requestID string) (*entity.RestoreRequest, error)
	List(ctx context.Context, filter entity.RestoreFilter) ([]entity.RestoreRequest, error)
}

type ChatEngine interface {
	SubmitClientQuestion(ctx context.Context, opportunityID, clientID, senderID, text string) (*escalation.QuestionResult, error)
	SubmitAgencyResponse(ctx context.Context, threadID, staffUserID, text string) (*entity.ChatMessage, error)
	Thread(ctx context.Context, threadID string) (*entity.ChatThread, error)
	ThreadMessages(ctx context.Context, opportunityID, clientID string, afterSeq int64, limit int) (*entity.ChatThread, []entity.ChatMessage, error)
	EscalatedThreads(ctx context.Context, agencyID string) ([]entity.ChatThread, error)
}

type AuthService interface {
	AuthenticateByToken(token string) (*entity.UserAuth, error)
	IssueToken(user entity.UserAuth) (string, time.Time, error)
}

type SweepPolicy struct {
	Enabled         bool
	Interval        time.Duration
	NoResponseGrace time.Duration
}

type Core struct {
	repo        Repository
	statuses    StatusService
	restore     RestoreService
	chat        ChatEngine
	authService AuthService
	policy      SweepPolicy
	now         func() time.Time
	log         *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		now: func() time.Time { return time.Now().UTC() },
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetStatusService(statuses StatusService) {
	c.statuses = statuses
}

func (c *Core) SetRestoreService(restore RestoreService) {
	c.restore = restore
}

func (c *Core) SetChatEngine(chat ChatEngine) {
	c.chat = chat
}

func (c *Core) SetAuthService(auth AuthService) {
	c.authService = auth
}

func (c *Core) SetSweepPolicy(policy SweepPolicy) {
	c.policy = policy
}

// Init starts the background policy sweeper when it is enabled.
func (c *Core) Init(ctx context.Context) {
	if !c.policy.Enabled || c.policy.Interval <= 0 {
		c.log.Debug("policy sweeper disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(c.policy.Interval)
		defer ticker.Stop()
		for {
			c.log.With(
				slog.Time("nextRun", c.now().Add(c.policy.Interval)),
			).Debug("next policy sweep")

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep(ctx)
			}
		}
	}()
}
