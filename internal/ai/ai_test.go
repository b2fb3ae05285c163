package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

type stubEmbedProvider struct {
	gotText string
	vec     []float32
	err     error
}

func (s *stubEmbedProvider) Name() string { return "stub" }

func (s *stubEmbedProvider) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	s.gotText = text
	return s.vec, s.err
}

type stubChatter struct {
	calls int
	resp  string
	err   error
}

func (s *stubChatter) Chat(ctx context.Context, system string, user string) (string, error) {
	s.calls++
	return s.resp, s.err
}

func TestEmbedderCollapsesNewlines(t *testing.T) {
	p := &stubEmbedProvider{vec: []float32{0.1, 0.2}}
	vec, err := NewEmbedder(p, "m").Embed(context.Background(), "line one\nline two\n")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2}, vec)
	require.Equal(t, "line one line two ", p.gotText)
}

func TestEmbedderWrapsUpstream(t *testing.T) {
	p := &stubEmbedProvider{err: errors.New("boom")}
	_, err := NewEmbedder(p, "m").Embed(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrUpstream)

	p = &stubEmbedProvider{}
	_, err = NewEmbedder(p, "m").Embed(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrUpstream)
}

func TestOpenAIProviderChatAndEmbed(t *testing.T) {
	var chatBody openAIChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/chat/completions":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&chatBody))
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" Arusha. "}}]}`))
		case "/v1/embeddings":
			_, _ = w.Write([]byte(`{"data":[{"embedding":[1,2,3]},{"embedding":[4]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	chatProvider, err := NewChatProvider("openai", map[string]interface{}{"api_key": "sk-test", "base_url": server.URL + "/v1"})
	require.NoError(t, err)
	out, err := NewChatter(chatProvider, "gpt-4o-mini", 0.3).Chat(context.Background(), "sys", "usr")
	require.NoError(t, err)
	require.Equal(t, "Arusha.", out)
	require.Equal(t, "gpt-4o-mini", chatBody.Model)
	require.InDelta(t, 0.3, chatBody.Temperature, 1e-6)
	require.Equal(t, []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "usr"}}, chatBody.Messages)

	embedProvider, err := NewEmbedProvider("OpenAI", map[string]interface{}{"api_key": "sk-test", "base_url": server.URL + "/v1"})
	require.NoError(t, err)
	vec, err := embedProvider.Embed(context.Background(), "text-embedding-3-small", "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, vec)
}

func TestOpenAIProviderHTTPErrorIsUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()
	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "k", "base_url": server.URL})
	require.NoError(t, err)
	_, err = NewEmbedder(p, "m").Embed(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrUpstream)
}

func TestProviderWithoutKeyIsUnavailable(t *testing.T) {
	p, err := NewChatProvider("openai", map[string]interface{}{})
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), &ChatRequest{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewChatProvider("nope", nil)
	require.Error(t, err)
	_, err = NewEmbedProvider("", nil)
	require.Error(t, err)
}

func TestGroupChatterFallsBack(t *testing.T) {
	first := &stubChatter{err: errors.New("down")}
	second := &stubChatter{resp: "ok"}
	g := NewGroupChatter([]ChatterEntry{{Name: "a", Chatter: first}, {Name: "b", Chatter: second}})
	out, err := g.Chat(context.Background(), "s", "u")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)

	single := NewGroupChatter([]ChatterEntry{{Name: "only", Chatter: second}})
	require.Same(t, second, single)
	require.Nil(t, NewGroupChatter(nil))
}
