package entity

// AiAnswer is the automated responder's verdict on a client question.
type AiAnswer struct {
	Text       string  `json:"text" bson:"text"`
	Confident  bool    `json:"confident" bson:"confident"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	Model      string  `json:"model,omitempty" bson:"model,omitempty"`
}

// Question is what the responder is asked, with enough context to answer it.
type Question struct {
	Opportunity *Opportunity
	ClientID    string
	Text        string
	History     []ChatMessage
}
