package gpt

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"prism/entity"
	"prism/internal/config"
	"prism/internal/lib/sl"
	"regexp"
	"strings"
)

const systemPrompt = `You answer questions from a PR agency's client about one media opportunity.
Use only the opportunity details and the conversation below. If the answer is not
clearly supported by them, or the question needs a decision from the agency, do not guess.
Reply with a JSON object: {"answer": string, "confident": boolean, "confidence": number between 0 and 1}.`

var citation = regexp.MustCompile(`【\d+:\d+†[^】]+】`)

// Responder asks a chat model to answer client questions in JSON mode.
type Responder struct {
	client    *openai.Client
	model     string
	threshold float64
	log       *slog.Logger
}

type modelAnswer struct {
	Answer     string  `json:"answer"`
	Confident  bool    `json:"confident"`
	Confidence float64 `json:"confidence"`
}

func NewResponder(conf *config.Config, logger *slog.Logger) *Responder {
	clientConf := openai.DefaultConfig(conf.OpenAI.ApiKey)
	if conf.OpenAI.BaseURL != "" {
		clientConf.BaseURL = conf.OpenAI.BaseURL
	}
	return &Responder{
		client:    openai.NewClientWithConfig(clientConf),
		model:     conf.OpenAI.Model,
		threshold: conf.OpenAI.ConfidenceThreshold,
		log:       logger.With(sl.Module("responder")),
	}
}

// Answer returns the model's verdict. Confident is set only when the model
// claims it, the answer is non-empty and the confidence reaches the threshold.
func (r *Responder) Answer(ctx context.Context, q entity.Question) (*entity.AiAnswer, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: buildMessages(q),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices")
	}

	content := resp.Choices[0].Message.Content
	answer, err := r.parse(content)
	if err != nil {
		r.log.With(
			slog.Int("text_length", len(content)),
			sl.Err(err),
		).Warn("unparsable model output")
		return nil, err
	}
	answer.Model = resp.Model

	r.log.With(
		slog.String("client_id", q.ClientID),
		slog.Float64("confidence", answer.Confidence),
		slog.Bool("confident", answer.Confident),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
	).Debug("responder verdict")
	return answer, nil
}

func (r *Responder) parse(content string) (*entity.AiAnswer, error) {
	var out modelAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	text := strings.TrimSpace(citation.ReplaceAllString(out.Answer, ""))
	return &entity.AiAnswer{
		Text:       text,
		Confident:  out.Confident && text != "" && out.Confidence >= r.threshold,
		Confidence: out.Confidence,
	}, nil
}

func buildMessages(q entity.Question) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: describe(q.Opportunity)},
	}
	for _, m := range q.History {
		switch m.Type {
		case entity.MessageClientQuestion:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Body})
		case entity.MessageAiResponse, entity.MessageAoprResponse:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Body})
		case entity.MessageSystem:
		}
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: q.Text})
}

func describe(opp *entity.Opportunity) string {
	if opp == nil {
		return "Opportunity details are unavailable."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Opportunity: %s\n", opp.Title)
	fmt.Fprintf(&b, "Media type: %s\n", opp.MediaType)
	if opp.OutletName != "" {
		fmt.Fprintf(&b, "Outlet: %s\n", opp.OutletName)
	}
	if opp.Deadline != nil {
		fmt.Fprintf(&b, "Deadline: %s\n", opp.Deadline.Format("2006-01-02 15:04 MST"))
	}
	if opp.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", opp.Summary)
	}
	return b.String()
}
