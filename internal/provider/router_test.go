package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeProvider struct {
	id    string
	err   error
	calls int
}

func (f *fakeProvider) ID() string   { return f.id }
func (f *fakeProvider) Name() string { return f.id }
func (f *fakeProvider) HealthCheck(context.Context) error {
	return nil
}

func (f *fakeProvider) Chat(_ context.Context, _ *ChatRequest) (*ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ChatResponse{Content: "from " + f.id, FinishReason: FinishStop}, nil
}

func TestRouterBindingAndDefault(t *testing.T) {
	r := NewRouter(zap.NewNop())
	a := &fakeProvider{id: "a"}
	b := &fakeProvider{id: "b"}
	r.Register(a)
	r.Register(b)
	r.Bind("classifier", "b")

	assert.Equal(t, "a", r.DefaultID())

	resp, err := r.Route(context.Background(), "classifier", &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from b", resp.Content)

	resp, err = r.Chatter("ventas").Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from a", resp.Content)

	ids := []string{}
	for _, p := range r.ListProviders() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRouterFallback(t *testing.T) {
	r := NewRouter(zap.NewNop())
	primary := &fakeProvider{id: "primary", err: errors.New("connection reset")}
	backup := &fakeProvider{id: "backup"}
	r.Register(primary)
	r.Register(backup)
	r.SetFallbacks([]string{"primary", "backup"})

	resp, err := r.Route(context.Background(), "faq", &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from backup", resp.Content)
	assert.Equal(t, 1, primary.calls)
}

func TestRouterDoesNotFallBackOnQuota(t *testing.T) {
	r := NewRouter(zap.NewNop())
	primary := &fakeProvider{id: "primary", err: &APIError{Provider: "gemini", StatusCode: 429, Message: "slow down"}}
	backup := &fakeProvider{id: "backup"}
	r.Register(primary)
	r.Register(backup)
	r.SetFallbacks([]string{"backup"})

	_, err := r.Route(context.Background(), "faq", &ChatRequest{})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Zero(t, backup.calls)
}

func TestRouterAllFail(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Register(&fakeProvider{id: "only", err: errors.New("boom")})

	_, err := r.Route(context.Background(), "public", &ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed for public")

	empty := NewRouter(zap.NewNop())
	_, err = empty.Route(context.Background(), "public", &ChatRequest{})
	require.Error(t, err)
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("googleapi: Error 429: Too Many Requests"), true},
		{errors.New("You exceeded your current quota"), true},
		{errors.New("RESOURCE_EXHAUSTED"), true},
		{fmt.Errorf("wrapped: %w", &APIError{StatusCode: 429}), true},
		{&APIError{StatusCode: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{&APIError{StatusCode: 500, Message: "internal"}, false},
		{errors.New("listening on port 4290"), false},
		{errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsRateLimited(tc.err), "%v", tc.err)
	}
}

func TestGeminiConvRequest(t *testing.T) {
	req := &ChatRequest{
		Temperature: 0.1,
		Tools: []Tool{{
			Name:        "list_groups",
			Description: "groups",
			Parameters:  &jsonschema.Schema{Type: "object"},
		}},
		Messages: []Message{
			Text(RoleSystem, "be brief"),
			Text(RoleUser, "hola"),
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "list_groups", Arguments: `{"program":"Derecho"}`}}},
			{Role: RoleTool, Name: "list_groups", ToolCallID: "1", Content: `{"groups":[]}`},
			{Role: RoleTool, Name: "list_groups", ToolCallID: "2", Content: `not json`},
		},
	}
	cfg, contents := geminiConvRequest(req)

	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "be brief", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.1, *cfg.Temperature, 1e-6)
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, "list_groups", cfg.Tools[0].FunctionDeclarations[0].Name)

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "Derecho", contents[1].Parts[0].FunctionCall.Args["program"])
	// consecutive tool results merge into one user turn
	assert.Equal(t, genai.RoleUser, contents[2].Role)
	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, "not json", contents[2].Parts[1].FunctionResponse.Response["result"])
}

func TestGeminiConvResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				genai.NewPartFromFunctionCall("start_enrollment", map[string]any{"program": "Derecho"}),
			}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
	out, err := geminiConvResponse("gemini-2.0-flash", resp)
	require.NoError(t, err)
	assert.Equal(t, FinishToolCalls, out.FinishReason)
	require.Len(t, out.ToolCalls, 1)
	assert.JSONEq(t, `{"program":"Derecho"}`, out.ToolCalls[0].Arguments)
	assert.NotEmpty(t, out.ToolCalls[0].ID)

	_, err = geminiConvResponse("m", &genai.GenerateContentResponse{})
	require.Error(t, err)
}

func TestOpenAIConvRequest(t *testing.T) {
	params, err := openaiConvRequest(&ChatRequest{
		Model: "gpt-4o-mini",
		Tools: []Tool{{Name: "general_info", Parameters: &jsonschema.Schema{Type: "object"}}},
		Messages: []Message{
			Text(RoleSystem, "sys"),
			Text(RoleUser, "hola"),
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "general_info", Arguments: "{}"}}},
			{Role: RoleTool, ToolCallID: "c1", Content: "UBE"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, params.Messages, 4)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "object", params.Tools[0].Function.Parameters["type"])

	_, err = openaiConvRequest(&ChatRequest{Messages: []Message{{Role: "narrator"}}})
	require.Error(t, err)
}
