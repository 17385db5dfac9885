package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FileInfo is one entry from a file listing.
type FileInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ModifiedTime string   `json:"modifiedTime"`
	Parents      []string `json:"parents"`
}

// FileMeta is the metadata consulted before a download. Drive omits size for
// native-format exports, hence SizeKnown.
type FileMeta struct {
	Size      int64
	SizeKnown bool
}

// Storage is the file-storage provider boundary. All three calls are
// fallible, latency-bearing remote calls.
type Storage interface {
	List(ctx context.Context, query string, pageSize int) ([]FileInfo, error)
	GetMetadata(ctx context.Context, fileID string) (FileMeta, error)
	GetMedia(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Client talks to the Drive v3 REST API with a bearer token.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/drive/v3"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) List(ctx context.Context, query string, pageSize int) ([]FileInfo, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("orderBy", "modifiedTime desc")
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("fields", "files(id,name,modifiedTime,parents)")

	var body struct {
		Files []FileInfo `json:"files"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/files?"+q.Encode(), &body); err != nil {
		return nil, err
	}
	return body.Files, nil
}

func (c *Client) GetMetadata(ctx context.Context, fileID string) (FileMeta, error) {
	// Drive reports size as a decimal string and omits it entirely for
	// native-format exports.
	var body struct {
		Size string `json:"size"`
	}
	u := fmt.Sprintf("%s/files/%s?fields=size", c.baseURL, url.PathEscape(fileID))
	if err := c.getJSON(ctx, u, &body); err != nil {
		return FileMeta{}, err
	}
	if strings.TrimSpace(body.Size) == "" {
		return FileMeta{}, nil
	}
	size, err := strconv.ParseInt(body.Size, 10, 64)
	if err != nil {
		return FileMeta{}, nil
	}
	return FileMeta{Size: size, SizeKnown: true}, nil
}

func (c *Client) GetMedia(ctx context.Context, fileID string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media", c.baseURL, url.PathEscape(fileID))
	resp, err := c.do(ctx, u)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, httpError(resp)
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	resp, err := c.do(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return httpError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.hc.Do(req)
}

func httpError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if len(snippet) == 0 {
		return errors.New("drive: unexpected status " + resp.Status)
	}
	return fmt.Errorf("drive: unexpected status %s: %s", resp.Status, string(snippet))
}
