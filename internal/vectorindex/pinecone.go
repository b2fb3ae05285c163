package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

const (
	defaultPineconeControllerURL = "https://api.pinecone.io"
	defaultPineconeCloud         = "aws"
	defaultPineconeRegion        = "us-east-1"
	pineconeAPIVersion           = "2024-07"
)

type pineconeConfig struct {
	APIKey        string `json:"api_key"`
	ControllerURL string `json:"controller_url"`
	Cloud         string `json:"cloud"`
	Region        string `json:"region"`
	// Host skips describe_index and sends data-plane calls to this base URL.
	Host string `json:"host"`
}

// PineconeClient speaks the Pinecone REST API: the control plane for listing and
// creating indexes, the per-index host for query and upsert.
type PineconeClient struct {
	apiKey        string
	controllerURL string
	cloud         string
	region        string
	host          string
	client        *http.Client
}

type pineconeIndexModel struct {
	Name string `json:"name"`
	Host string `json:"host"`
}

type pineconeListResponse struct {
	Indexes []pineconeIndexModel `json:"indexes"`
}

type pineconeCreateRequest struct {
	Name      string             `json:"name"`
	Dimension int                `json:"dimension"`
	Metric    string             `json:"metric"`
	Spec      pineconeCreateSpec `json:"spec"`
}

type pineconeCreateSpec struct {
	Serverless pineconeServerless `json:"serverless"`
}

type pineconeServerless struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string                `json:"id"`
		Score    float32               `json:"score"`
		Metadata *model.VectorMetadata `json:"metadata"`
	} `json:"matches"`
}

type pineconeUpsertRequest struct {
	Vectors []model.VectorRecord `json:"vectors"`
}

func NewPineconeClient(args interface{}) (*PineconeClient, error) {
	cfg := &pineconeConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone api_key is required")
	}
	c := &PineconeClient{
		apiKey:        apiKey,
		controllerURL: strings.TrimRight(strings.TrimSpace(cfg.ControllerURL), "/"),
		cloud:         strings.TrimSpace(cfg.Cloud),
		region:        strings.TrimSpace(cfg.Region),
		host:          strings.TrimRight(strings.TrimSpace(cfg.Host), "/"),
		client:        http.DefaultClient,
	}
	if c.controllerURL == "" {
		c.controllerURL = defaultPineconeControllerURL
	}
	if c.cloud == "" {
		c.cloud = defaultPineconeCloud
	}
	if c.region == "" {
		c.region = defaultPineconeRegion
	}
	return c, nil
}

func (c *PineconeClient) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	var list pineconeListResponse
	if err := c.do(ctx, http.MethodGet, c.controllerURL+"/indexes", nil, &list); err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	for _, idx := range list.Indexes {
		if idx.Name == name {
			return nil
		}
	}
	req := pineconeCreateRequest{
		Name:      name,
		Dimension: dimension,
		Metric:    metric,
		Spec: pineconeCreateSpec{
			Serverless: pineconeServerless{Cloud: c.cloud, Region: c.region},
		},
	}
	if err := c.do(ctx, http.MethodPost, c.controllerURL+"/indexes", req, nil); err != nil {
		// Another creator may have won the race; query/upsert will surface a real absence.
		logutil.GetLogger(ctx).Warn("index creation note", zap.String("index", name), zap.Error(err))
		return nil
	}
	logutil.GetLogger(ctx).Info("index created",
		zap.String("index", name),
		zap.Int("dimension", dimension),
		zap.String("metric", metric),
	)
	return nil
}

func (c *PineconeClient) Index(name string) Index {
	return &pineconeIndex{client: c, name: name, host: c.host}
}

func (c *PineconeClient) describeHost(ctx context.Context, name string) (string, error) {
	var out pineconeIndexModel
	if err := c.do(ctx, http.MethodGet, c.controllerURL+"/indexes/"+url.PathEscape(name), nil, &out); err != nil {
		return "", fmt.Errorf("describe index: %w", err)
	}
	host := strings.TrimSpace(out.Host)
	if host == "" {
		return "", fmt.Errorf("%w: index %s has no host yet", appErr.ErrUpstream, name)
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/"), nil
}

func (c *PineconeClient) do(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", pineconeAPIVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", appErr.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: pinecone %s %s failed: %s: %s", appErr.ErrUpstream, method, endpoint, resp.Status, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode pinecone response: %w", appErr.ErrUpstream, err)
	}
	return nil
}

type pineconeIndex struct {
	client *PineconeClient
	name   string

	mu   sync.Mutex
	host string
}

func (i *pineconeIndex) resolveHost(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.host != "" {
		return i.host, nil
	}
	host, err := i.client.describeHost(ctx, i.name)
	if err != nil {
		return "", err
	}
	i.host = host
	return host, nil
}

func (i *pineconeIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]model.Match, error) {
	host, err := i.resolveHost(ctx)
	if err != nil {
		return nil, err
	}
	var out pineconeQueryResponse
	req := pineconeQueryRequest{Vector: vector, TopK: topK, IncludeMetadata: includeMetadata}
	if err := i.client.do(ctx, http.MethodPost, host+"/query", req, &out); err != nil {
		return nil, err
	}
	matches := make([]model.Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		match := model.Match{ID: m.ID, Score: m.Score}
		if m.Metadata != nil {
			match.Text = m.Metadata.Text
			match.SourceURL = m.Metadata.URL
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (i *pineconeIndex) Upsert(ctx context.Context, records []model.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	host, err := i.resolveHost(ctx)
	if err != nil {
		return err
	}
	return i.client.do(ctx, http.MethodPost, host+"/vectors/upsert", pineconeUpsertRequest{Vectors: records}, nil)
}

func init() {
	Register("pinecone", func(args interface{}) (Client, error) {
		c, err := NewPineconeClient(args)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
