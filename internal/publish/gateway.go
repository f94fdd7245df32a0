// Package publish uploads a generated site to an IPFS node and pins the
// resulting root directory, so the site stays reachable through any public
// gateway by content hash.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/inkpress/scribe/internal/logfields"
	"github.com/inkpress/scribe/internal/metrics"
	"github.com/inkpress/scribe/internal/retry"
)

// State tracks where in the publish sequence the gateway is. The sequence is
// linear: Idle, Connecting, Uploading, Pinning, then Pinned or Failed.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateUploading  State = "uploading"
	StatePinning    State = "pinning"
	StatePinned     State = "pinned"
	StateFailed     State = "failed"
)

// PinRecord is the durable result of a successful publish.
type PinRecord struct {
	CID       string    `json:"cid"`
	Name      string    `json:"name,omitempty"`
	Recursive bool      `json:"recursive"`
	Files     int       `json:"files"`
	PinnedAt  time.Time `json:"pinned_at"`
}

// Gateway publishes site directories to one IPFS node with retry on
// transient connection failures.
type Gateway struct {
	client   *Client
	policy   retry.Policy
	recorder metrics.Recorder
	state    State
}

// NewGateway creates a gateway against the node API at apiURL.
func NewGateway(apiURL string, timeout time.Duration, policy retry.Policy) *Gateway {
	return &Gateway{
		client:   NewClient(apiURL, timeout),
		policy:   policy,
		recorder: metrics.NoopRecorder{},
		state:    StateIdle,
	}
}

// WithRecorder injects a metrics recorder.
func (g *Gateway) WithRecorder(r metrics.Recorder) *Gateway {
	if r != nil {
		g.recorder = r
	}
	return g
}

// State returns the gateway's current position in the publish sequence.
func (g *Gateway) State() State { return g.state }

// Publish uploads dir and pins its root. name is advisory metadata recorded
// alongside the pin; IPFS nodes do not store it.
func (g *Gateway) Publish(ctx context.Context, dir, name string, recursive bool) (*PinRecord, error) {
	start := time.Now()
	rec, err := g.publish(ctx, dir, name, recursive)
	g.recorder.ObservePublishDuration(time.Since(start))
	g.recorder.IncPublishResult(err == nil)
	if err != nil {
		g.state = StateFailed
		return nil, err
	}
	g.state = StatePinned
	return rec, nil
}

func (g *Gateway) publish(ctx context.Context, dir, name string, recursive bool) (*PinRecord, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("site directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site directory %s: not a directory", dir)
	}

	g.state = StateConnecting
	var version string
	err = g.withRetry(ctx, "connect", func() error {
		var verr error
		version, verr = g.client.Version(ctx)
		return verr
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to IPFS node", slog.String("version", version))

	g.state = StateUploading
	var added []AddedFile
	err = g.withRetry(ctx, "upload", func() error {
		var aerr error
		added, aerr = g.client.AddDirectory(ctx, dir)
		return aerr
	})
	if err != nil {
		return nil, err
	}

	root := ""
	base := filepath.Base(filepath.Clean(dir))
	for _, f := range added {
		if f.Name == base {
			root = f.Hash
		}
	}
	if root == "" {
		return nil, &Error{Op: "upload", Attempts: 1,
			Err: fmt.Errorf("%w: root directory entry missing", ErrPartialUpload)}
	}
	slog.Info("Site uploaded", logfields.CID(root), slog.Int("files", len(added)))

	g.state = StatePinning
	err = g.withRetry(ctx, "pin", func() error {
		return g.client.PinAdd(ctx, root, recursive)
	})
	if err != nil {
		return nil, err
	}

	return &PinRecord{
		CID:       root,
		Name:      name,
		Recursive: recursive,
		Files:     len(added),
		PinnedAt:  time.Now().UTC(),
	}, nil
}

// withRetry runs fn, retrying transient failures under the gateway's policy.
func (g *Gateway) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := 0
	for {
		attempts++
		g.recorder.IncPublishAttempt()
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) || attempts > g.policy.MaxRetries {
			return &Error{Op: op, Attempts: attempts, Err: err}
		}

		delay := g.policy.Delay(attempts)
		slog.Warn("Publish attempt failed, retrying",
			slog.String("op", op), logfields.Attempt(attempts),
			slog.Duration("delay", delay), logfields.Error(err))
		select {
		case <-ctx.Done():
			return &Error{Op: op, Attempts: attempts, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
}

// GatewayURLs lists public gateway URLs serving cid, the local node gateway
// first.
func GatewayURLs(cid string) []string {
	return []string{
		"http://127.0.0.1:8080/ipfs/" + cid,
		"https://ipfs.io/ipfs/" + cid,
		"https://gateway.pinata.cloud/ipfs/" + cid,
		"https://cloudflare-ipfs.com/ipfs/" + cid,
		"https://dweb.link/ipfs/" + cid,
	}
}
