package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiDimension = 1536

type geminiConfig struct {
	APIKey               string `json:"api_key"`
	OutputDimensionality int32  `json:"output_dimensionality"`
}

type geminiProvider struct {
	apiKey    string
	dimension int32
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{Temperature: &temperature}
	var contents []*genai.Content
	for _, msg := range req.Messages {
		part := &genai.Part{Text: msg.Content}
		if msg.Role == RoleSystem {
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{part}}
			continue
		}
		contents = append(contents, &genai.Content{Role: RoleUser, Parts: []*genai.Part{part}})
	}
	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	dim := p.dimension
	resp, err := client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func newGeminiProvider(args interface{}) (*geminiProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	dim := cfg.OutputDimensionality
	if dim <= 0 {
		dim = defaultGeminiDimension
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey), dimension: dim}, nil
}

func createGeminiFactory(args interface{}) (IChatProvider, error) {
	p, err := newGeminiProvider(args)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	p, err := newGeminiProvider(args)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
