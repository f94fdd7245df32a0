package publish

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Client speaks the IPFS node HTTP API (the /api/v0 RPC surface). All
// endpoints are POST; add streams back newline-delimited JSON, one object
// per stored node.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the node API at baseURL, for example
// http://127.0.0.1:5001.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Version returns the node's version string. Used as the connectivity probe
// before any upload starts.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.post(ctx, "/api/v0/version", nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var v struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", fmt.Errorf("%w: decode version: %v", ErrInvalidResponse, err)
	}
	if v.Version == "" {
		return "", fmt.Errorf("%w: empty version", ErrInvalidResponse)
	}
	return v.Version, nil
}

// AddedFile is one entry from the add stream.
type AddedFile struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
}

// AddDirectory uploads every file under dir, preserving the directory
// structure, and returns the add stream entries. The entry whose name equals
// the directory's base name is the root.
func (c *Client) AddDirectory(ctx context.Context, dir string) ([]AddedFile, error) {
	body, contentType, err := directoryBody(dir)
	if err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, "/api/v0/add?recursive=true&progress=false", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var added []AddedFile
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var f AddedFile
		if err := json.Unmarshal(line, &f); err != nil {
			return nil, fmt.Errorf("%w: decode add entry: %v", ErrInvalidResponse, err)
		}
		added = append(added, f)
	}
	if err := scanner.Err(); err != nil {
		// A stream that died after storing entries must not be re-driven.
		if len(added) > 0 {
			return nil, fmt.Errorf("%w: add stream ended after %d entries: %v", ErrPartialUpload, len(added), err)
		}
		return nil, fmt.Errorf("%w: read add stream: %v", ErrEndpointUnreachable, err)
	}
	if len(added) == 0 {
		return nil, fmt.Errorf("%w: empty add stream", ErrInvalidResponse)
	}
	return added, nil
}

// PinAdd pins cid on the node.
func (c *Client) PinAdd(ctx context.Context, cid string, recursive bool) error {
	path := "/api/v0/pin/add?arg=" + url.QueryEscape(cid) + "&recursive=" + strconv.FormatBool(recursive)
	resp, err := c.post(ctx, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var pinned struct {
		Pins []string `json:"Pins"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return fmt.Errorf("%w: decode pin response: %v", ErrInvalidResponse, err)
	}
	for _, p := range pinned.Pins {
		if p == cid {
			return nil
		}
	}
	return fmt.Errorf("%w: pin response missing %s", ErrInvalidResponse, cid)
}

func (c *Client) post(ctx context.Context, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}
	if resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrEndpointUnreachable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return resp, nil
}

// directoryBody builds the multipart payload for add: one part per file, the
// part filename carrying the path relative to the directory's parent so the
// node reconstructs the tree rooted at the directory's base name.
func directoryBody(dir string) (io.Reader, string, error) {
	root := filepath.Base(filepath.Clean(dir))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := root + "/" + filepath.ToSlash(rel)

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, url.PathEscape(name)))
		h.Set("Content-Type", "application/octet-stream")
		h.Set("Abspath", path)

		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(part, f)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("read site directory %s: %w", dir, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
