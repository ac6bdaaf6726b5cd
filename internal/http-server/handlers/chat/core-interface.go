package chat

import (
	"context"
	"prism/entity"
	"prism/internal/service/escalation"
)

type Core interface {
	AskQuestion(ctx context.Context, user *entity.UserAuth, opportunityID, clientID, text string) (*escalation.QuestionResult, error)
	ChatMessages(ctx context.Context, user *entity.UserAuth, opportunityID, clientID string, afterSeq int64, limit int) (*entity.ThreadView, error)
	EscalatedThreads(ctx context.Context, user *entity.UserAuth, agencyID string) ([]entity.ChatThread, error)
	RespondToThread(ctx context.Context, user *entity.UserAuth, threadID, text string) (*entity.ChatMessage, error)
}
