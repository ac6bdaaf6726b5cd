package entity

import (
	"github.com/google/uuid"
	"time"
)

type MessageType string

const (
	MessageClientQuestion MessageType = "client_question"
	MessageAiResponse     MessageType = "ai_response"
	MessageAoprResponse   MessageType = "aopr_response"
	MessageSystem         MessageType = "system_message"
)

// ChatThread is the Q&A conversation for one (opportunity, client) pair.
// LastSeq is the sequence number of the newest message.
type ChatThread struct {
	ID            string     `json:"id" bson:"_id"`
	OpportunityID string     `json:"opportunity_id" bson:"opportunity_id"`
	ClientID      string     `json:"client_id" bson:"client_id"`
	AgencyID      string     `json:"agency_id" bson:"agency_id"`
	IsEscalated   bool       `json:"is_escalated" bson:"is_escalated"`
	EscalatedAt   *time.Time `json:"escalated_at,omitempty" bson:"escalated_at,omitempty"`
	LastSeq       int64      `json:"last_seq" bson:"last_seq"`
	LastMessageAt time.Time  `json:"last_message_at" bson:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

func NewChatThread(opportunityID, clientID, agencyID string) *ChatThread {
	now := time.Now().UTC()
	return &ChatThread{
		ID:            uuid.NewString(),
		OpportunityID: opportunityID,
		ClientID:      clientID,
		AgencyID:      agencyID,
		CreatedAt:     now,
	}
}

// ChatMessage is an immutable entry in a thread.
type ChatMessage struct {
	ID            string         `json:"id" bson:"_id"`
	ThreadID      string         `json:"thread_id" bson:"thread_id"`
	OpportunityID string         `json:"opportunity_id" bson:"opportunity_id"`
	ClientID      string         `json:"client_id" bson:"client_id"`
	Seq           int64          `json:"seq" bson:"seq"`
	Type          MessageType    `json:"type" bson:"type"`
	SenderID      string         `json:"sender_id,omitempty" bson:"sender_id,omitempty"`
	Body          string         `json:"body" bson:"body"`
	IsEscalated   bool           `json:"is_escalated" bson:"is_escalated"`
	Metadata      map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
}

func NewChatMessage(thread *ChatThread, msgType MessageType, senderID, body string) *ChatMessage {
	return &ChatMessage{
		ID:            uuid.NewString(),
		ThreadID:      thread.ID,
		OpportunityID: thread.OpportunityID,
		ClientID:      thread.ClientID,
		Type:          msgType,
		SenderID:      senderID,
		Body:          body,
	}
}
