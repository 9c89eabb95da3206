package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
	"github.com/oldiebutgoldie/marketplace/internal/port"
)

const userAgent = "OldieButGoldieMarketplace/1.0"

// DiscogsClient looks up releases for item metadata hydration.
type DiscogsClient struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func NewDiscogsClient(baseURL, token string) *DiscogsClient {
	return &DiscogsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

type releaseResponse struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Year    int      `json:"year"`
	Country string   `json:"country"`
	URI     string   `json:"uri"`
	Genres  []string `json:"genres"`
	Styles  []string `json:"styles"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Formats []struct {
		Name         string   `json:"name"`
		Descriptions []string `json:"descriptions"`
	} `json:"formats"`
}

func (c *DiscogsClient) GetRelease(ctx context.Context, releaseID int64) (*port.CatalogRelease, error) {
	url := fmt.Sprintf("%s/releases/%d", c.baseURL, releaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Discogs token="+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	var rel releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	out := &port.CatalogRelease{
		ID:      rel.ID,
		Title:   rel.Title,
		Year:    rel.Year,
		Country: rel.Country,
		Genres:  rel.Genres,
		Styles:  rel.Styles,
		URL:     rel.URI,
	}
	if len(rel.Artists) > 0 {
		names := make([]string, 0, len(rel.Artists))
		for _, a := range rel.Artists {
			names = append(names, a.Name)
		}
		out.Artist = strings.Join(names, ", ")
	}
	if len(rel.Formats) > 0 {
		f := rel.Formats[0]
		parts := append([]string{f.Name}, f.Descriptions...)
		out.Format = strings.Join(parts, ", ")
	}
	return out, nil
}
