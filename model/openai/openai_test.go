package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/model"
)

type capturedRequest struct {
	path       string
	apiVersion string
	apiKey     string
	body       struct {
		Model    string           `json:"model"`
		Messages []map[string]any `json:"messages"`
		Tools    []map[string]any `json:"tools"`
	}
}

func collect(t *testing.T, m model.Model, req model.Request) []model.Response {
	t.Helper()

	respCh, errCh := m.Generate(context.Background(), req)

	var out []model.Response
	for r := range respCh {
		out = append(out, r)
	}

	require.NoError(t, <-errCh)

	return out
}

func TestNewAzureModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	var got capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.apiVersion = r.URL.Query().Get("api-version")
		got.apiKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&got.body)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Sunny in Oslo."}}]}`)
	}))
	defer srv.Close()

	m := NewAzureModel(AzureConfig{Endpoint: srv.URL + "/", Deployment: "trip-gpt", APIKey: "secret"})

	assert.Equal(t, model.Info{Name: "trip-gpt", Provider: "azure-openai", SupportsTools: true}, m.Info())

	req := model.Request{
		Instructions: "You are a weather specialist.",
		Contents: []core.Content{
			core.NewTextContent("user", "weather in Oslo?"),
			{Role: "assistant", Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "get_weather", Arguments: `{}`}}}},
			{Role: "tool", Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "get_weather", Error: "VALIDATION: destination is required"}}}},
		},
		Tools: []model.ToolDefinition{model.NewFunctionDefinition("get_weather", "Weather lookup", map[string]any{"type": "object"})},
	}

	resps := collect(t, m, req)
	require.Len(t, resps, 1)
	assert.Equal(t, "Sunny in Oslo.", resps[0].Content.Text())
	assert.Equal(t, "stop", resps[0].FinishReason)

	assert.Equal(t, "/openai/deployments/trip-gpt/chat/completions", got.path)
	assert.Equal(t, DefaultAzureAPIVersion, got.apiVersion)
	assert.Equal(t, "secret", got.apiKey)
	assert.Equal(t, "trip-gpt", got.body.Model)
	require.Len(t, got.body.Tools, 1)

	// system, user, assistant tool call, tool result
	require.Len(t, got.body.Messages, 4)
	assert.Equal(t, "system", got.body.Messages[0]["role"])
	assert.Equal(t, "tool", got.body.Messages[3]["role"])
	assert.Equal(t, "c1", got.body.Messages[3]["tool_call_id"])
	assert.JSONEq(t, `{"error":"VALIDATION: destination is required"}`, got.body.Messages[3]["content"].(string))
}

func TestToolMessageText(t *testing.T) {
	assert.Equal(t, `{"temp":22}`, toolMessageText(core.FunctionResponse{Response: `{"temp":22}`}))
	assert.Equal(t, `{"error":"UNKNOWN_FLIGHT: \"FL-9\" not found"}`, toolMessageText(core.FunctionResponse{Error: `UNKNOWN_FLIGHT: "FL-9" not found`}))
}

func TestModel_StreamingAggregatesToolCallsInIndexOrder(t *testing.T) {
	chunks := []string{
		`{"id":"s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Looking "}}]}`,
		`{"id":"s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"it up."}}]}`,
		`{"id":"s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"get_activities","arguments":"{\"destination\":"}}]}}]}`,
		`{"id":"s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"get_weather","arguments":"{\"destination\":\"Rome\"}"}}]}}]}`,
		`{"id":"s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"function":{"arguments":"\"Rome\"}"}}]}}]}`,
		`{"id":"s1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
	}

	var got capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got.body)

		w.Header().Set("Content-Type", "text/event-stream")

		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}

		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithBaseURL(srv.URL+"/"), option.WithAPIKey("test"), option.WithMaxRetries(0))
	m := NewModelFromClient(&client)

	resps := collect(t, m, model.Request{Stream: true, Contents: []core.Content{core.NewTextContent("user", "plan Rome")}})
	require.NotEmpty(t, resps)

	assert.Equal(t, "/chat/completions", got.path)

	var tokens string

	for _, r := range resps[:len(resps)-1] {
		assert.True(t, r.Partial)
		tokens += r.Content.Text()
	}

	assert.Equal(t, "Looking it up.", tokens)

	final := resps[len(resps)-1]
	assert.False(t, final.Partial)
	assert.Equal(t, "tool_calls", final.FinishReason)
	assert.Equal(t, "Looking it up.", final.Content.Text())
	assert.Equal(t, []core.FunctionCall{
		{ID: "call_a", Name: "get_weather", Arguments: `{"destination":"Rome"}`},
		{ID: "call_b", Name: "get_activities", Arguments: `{"destination":"Rome"}`},
	}, final.Content.FunctionCalls())
}
