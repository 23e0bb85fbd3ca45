// Package coordinator implements the builder-identity heartbeat supplemented
// in SPEC_FULL.md: a builder announces its name, version, endpoint and
// toolchain set to a coordinator once a second, so the coordinator can route
// compile requests to builders that actually have the needed toolchain.
//
// Grounded on original_source/src/bin/octo_builder.rs's thread_anoncer, which
// loops posting a JSON-encoded BuilderInfoUpdate to the coordinator's
// RPC_BUILDER_UPDATE endpoint via hyper::Client once a second until told to
// stop; here an Announcer interface stands in for hyper::Client so the loop
// itself (Run) is backend-agnostic, with HTTPAnnouncer as the one concrete
// implementation.
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ccdispatch/internal/common"
)

// BuilderInfo mirrors octo_builder.rs's BuilderInfo: identity a coordinator
// needs to route a CompileRequest to this builder.
type BuilderInfo struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Endpoint   string   `json:"endpoint"`
	Toolchains []string `json:"toolchains"`
}

// Announcer delivers one BuilderInfo heartbeat to a coordinator.
type Announcer interface {
	Announce(ctx context.Context, info BuilderInfo) error
}

// HTTPAnnouncer POSTs a JSON-encoded BuilderInfo to URL, the Go counterpart of
// thread_anoncer's hyper::Client().post(coordinator_url.join(RPC_BUILDER_UPDATE)).
type HTTPAnnouncer struct {
	URL    string
	Client *http.Client
}

func NewHTTPAnnouncer(url string) *HTTPAnnouncer {
	return &HTTPAnnouncer{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (a *HTTPAnnouncer) Announce(ctx context.Context, info BuilderInfo) error {
	body, err := json.Marshal(info)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("coordinator returned %s", resp.Status)
	}
	return nil
}

// Run announces info on a once a second via a, matching the original's fixed
// thread::sleep(Duration::from_secs(1)) cadence, until ctx is cancelled. A
// failed announce is logged and retried on the next tick rather than aborting
// the loop — the original does the same (logs and keeps looping).
func Run(ctx context.Context, a Announcer, info BuilderInfo, logger *common.LoggerWrapper) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if err := a.Announce(ctx, info); err != nil {
			logger.Error(fmt.Sprintf("coordinator: can't send info to coordinator: %v", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
