package entity

import (
	"github.com/google/uuid"
	"time"
)

// Client is a party an agency represents and assigns opportunities to.
type Client struct {
	ID        string    `json:"id" bson:"_id"`
	AgencyID  string    `json:"agency_id" bson:"agency_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Company   string    `json:"company" bson:"company"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func NewClient(agencyID, name, email string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		AgencyID:  agencyID,
		Name:      name,
		Email:     email,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}
