package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

// Model is one entry of the provider's model listing.
type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ID returns the model id without the "models/" prefix.
func (m Model) ID() string { return strings.TrimPrefix(m.Name, "models/") }

// CanGenerate reports whether the model supports generateContent.
func (m Model) CanGenerate() bool {
	if len(m.SupportedGenerationMethods) == 0 {
		return true
	}
	for _, method := range m.SupportedGenerationMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

type listResponse struct {
	Models        []Model `json:"models"`
	NextPageToken string  `json:"nextPageToken"`
}

// maxPages bounds pagination of the listing.
const maxPages = 10

// Catalog lists the models visible to a credential. It is diagnostic only:
// readiness uses it, the fallback chain never does.
type Catalog struct {
	baseURL    string
	cred       domain.Credential
	httpClient *http.Client
	refreshDur time.Duration

	mu        sync.RWMutex
	models    []Model
	lastFetch time.Time
}

// NewCatalog creates a catalog that refreshes its listing at most every refreshDur.
// The key travels in a header, so the listing call can be traced like any other.
func NewCatalog(baseURL string, cred domain.Credential, refreshDur time.Duration) *Catalog {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Catalog %s %s", r.Method, r.URL.Host)
		}),
	)
	return &Catalog{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cred:       cred,
		httpClient: &http.Client{Timeout: 10 * time.Second, Transport: transport},
		refreshDur: refreshDur,
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (c *Catalog) WithHTTPClient(hc *http.Client) *Catalog {
	c.httpClient = hc
	return c
}

// List returns the cached listing, fetching when it is stale. On fetch failure
// a previous listing is served if one exists.
func (c *Catalog) List(ctx context.Context) ([]Model, error) {
	c.mu.RLock()
	fresh := c.models != nil && time.Since(c.lastFetch) <= c.refreshDur
	cached := c.models
	c.mu.RUnlock()

	if !fresh {
		models, err := c.fetch(ctx)
		if err != nil {
			if cached != nil {
				slog.Warn("using cached model catalog due to fetch failure",
					slog.Any("error", err),
					slog.Int("cached_count", len(cached)))
				return copyModels(cached), nil
			}
			return nil, err
		}
		c.mu.Lock()
		c.models = models
		c.lastFetch = time.Now()
		c.mu.Unlock()
		slog.Info("fetched provider model catalog", slog.Int("count", len(models)))
		return copyModels(models), nil
	}
	return copyModels(cached), nil
}

// Probe checks the provider is reachable with the first credential.
func (c *Catalog) Probe(ctx context.Context) error {
	_, err := c.List(ctx)
	return err
}

// Missing returns the ids in want that the provider does not list as generative models.
func (c *Catalog) Missing(ctx context.Context, want []string) ([]string, error) {
	models, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(models))
	for _, m := range models {
		if m.CanGenerate() {
			have[m.ID()] = struct{}{}
		}
	}
	var missing []string
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (c *Catalog) fetch(ctx context.Context) ([]Model, error) {
	var all []Model
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		resp, err := c.fetchPage(ctx, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Models...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	if all == nil {
		all = []Model{}
	}
	return all, nil
}

func (c *Catalog) fetchPage(ctx context.Context, pageToken string) (*listResponse, error) {
	q := url.Values{}
	q.Set("pageSize", "100")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("op=models.Catalog.fetch: create request: %w", err)
	}
	// header auth keeps the key out of the URL
	req.Header.Set("x-goog-api-key", c.cred.Secret())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=models.Catalog.fetch: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", slog.Any("error", closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("op=models.Catalog.fetch: provider returned status %d", resp.StatusCode)
	}

	var out listResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("op=models.Catalog.fetch: decode: %w", err)
	}
	return &out, nil
}

func copyModels(in []Model) []Model {
	out := make([]Model, len(in))
	copy(out, in)
	return out
}
