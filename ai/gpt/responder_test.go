package gpt

import (
	"context"
	"encoding/json"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"prism/entity"
	"prism/internal/config"
	"testing"
)

func newTestResponder(t *testing.T, handler http.HandlerFunc) *Responder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &config.Config{}
	conf.OpenAI.ApiKey = "sk-test"
	conf.OpenAI.BaseURL = srv.URL + "/v1"
	conf.OpenAI.Model = "gpt-4o-mini"
	conf.OpenAI.ConfidenceThreshold = 0.7
	return NewResponder(conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{{
			Index:   0,
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

func TestParse(t *testing.T) {
	r := &Responder{threshold: 0.7}
	cases := []struct {
		name      string
		content   string
		confident bool
		text      string
	}{
		{name: "confident", content: `{"answer":"Yes, remote.","confident":true,"confidence":0.9}`, confident: true, text: "Yes, remote."},
		{name: "below threshold", content: `{"answer":"Maybe","confident":true,"confidence":0.5}`, confident: false, text: "Maybe"},
		{name: "model unsure", content: `{"answer":"Maybe","confident":false,"confidence":0.95}`, confident: false, text: "Maybe"},
		{name: "empty", content: `{"answer":"  ","confident":true,"confidence":0.99}`, confident: false, text: ""},
		{name: "citation stripped", content: `{"answer":"Fee is waived【4:1†brief.pdf】","confident":true,"confidence":0.7}`, confident: true, text: "Fee is waived"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.parse(tc.content)
			require.NoError(t, err)
			assert.Equal(t, tc.confident, got.Confident)
			assert.Equal(t, tc.text, got.Text)
		})
	}

	_, err := r.parse("Sure! The answer is yes.")
	assert.Error(t, err)
}

func TestAnswer(t *testing.T) {
	var req openai.ChatCompletionRequest
	r := newTestResponder(t, func(w http.ResponseWriter, hr *http.Request) {
		assert.Equal(t, "/v1/chat/completions", hr.URL.Path)
		assert.Equal(t, "Bearer sk-test", hr.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(hr.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"answer":"It airs live.","confident":true,"confidence":0.85}`))
	})

	opp := entity.NewOpportunity("agency-1", "Evening news segment", entity.MediaBroadcast, "aopr-1")
	history := []entity.ChatMessage{
		{Type: entity.MessageClientQuestion, Body: "Who hosts?"},
		{Type: entity.MessageSystem, Body: "forwarded"},
		{Type: entity.MessageAoprResponse, Body: "Jane Doe."},
	}

	got, err := r.Answer(context.Background(), entity.Question{Opportunity: opp, ClientID: "client-1", Text: "Is it live?", History: history})
	require.NoError(t, err)
	assert.True(t, got.Confident)
	assert.Equal(t, "It airs live.", got.Text)
	assert.Equal(t, "gpt-4o-mini", got.Model)

	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	require.Len(t, req.Messages, 5, "system prompt, opportunity, two history turns, question")
	assert.Contains(t, req.Messages[1].Content, "Evening news segment")
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[3].Role)
	assert.Equal(t, "Is it live?", req.Messages[4].Content)
}

func TestAnswer_UpstreamError(t *testing.T) {
	r := newTestResponder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := r.Answer(context.Background(), entity.Question{Opportunity: entity.NewOpportunity("a", "t", entity.MediaOther, "u"), Text: "?"})
	assert.Error(t, err)
}
