// Package scryfall fetches bulk card data from the Scryfall catalog API.
package scryfall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL  = "https://api.scryfall.com"
	DefaultBulkType = "default_cards"
	userAgent       = "manavault-importer/1.0"
)

var ErrManifestTypeNotFound = errors.New("bulk data type not found in manifest")

// NetworkError is any failure to fetch or decode a catalog response.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("scryfall %s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("scryfall %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BulkData is one entry of the /bulk-data manifest.
type BulkData struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	DownloadURI string    `json:"download_uri"`
	UpdatedAt   time.Time `json:"updated_at"`
	Size        int64     `json:"size"`
}

type manifest struct {
	Data []BulkData `json:"data"`
}

// RawCard holds the catalog fields the importer copies into the cards table.
type RawCard struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	TypeLine   *string  `json:"type_line"`
	OracleText *string  `json:"oracle_text"`
	ManaCost   *string  `json:"mana_cost"`
	Power      *string  `json:"power"`
	Toughness  *string  `json:"toughness"`
	Colors     []string `json:"colors"`
	Rarity     *string  `json:"rarity"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) FetchBulkManifest(ctx context.Context) ([]BulkData, error) {
	var m manifest
	if err := c.getJSON(ctx, "fetch manifest", c.baseURL+"/bulk-data", &m); err != nil {
		return nil, err
	}
	return m.Data, nil
}

func (c *Client) FetchBulkPayload(ctx context.Context, uri string) ([]RawCard, error) {
	var cards []RawCard
	if err := c.getJSON(ctx, "fetch payload", uri, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// FindBulkData picks the manifest entry for bulkType.
func FindBulkData(entries []BulkData, bulkType string) (BulkData, error) {
	for _, e := range entries {
		if e.Type == bulkType {
			return e, nil
		}
	}
	return BulkData{}, fmt.Errorf("%w: %q", ErrManifestTypeNotFound, bulkType)
}

func (c *Client) getJSON(ctx context.Context, op, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{Op: op, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &NetworkError{Op: op, URL: url, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &NetworkError{Op: op, URL: url, Err: fmt.Errorf("decode: %w", err)}
	}

	log.Debugf("scryfall %s %s done", op, url)
	return nil
}
