package provider

import (
	"bufio"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// streamHTTPClient is shared across all streaming API calls. One shared
// Transport reuses connections and avoids ephemeral port exhaustion;
// DisableCompression keeps proxies from gzipping the SSE stream;
// TLSNextProto stays nil so Go auto-negotiates HTTP/2.
var streamHTTPClient = &http.Client{
	Transport: &http.Transport{
		TLSHandshakeTimeout:   30 * time.Second,
		ResponseHeaderTimeout: 2 * time.Minute,
		IdleConnTimeout:       90 * time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   4,
	},
}

// CloseIdleConnections drops idle pooled connections. Called before a
// retry so the next attempt gets a fresh connection instead of a stale
// one; Go only auto-retries stale connections for idempotent methods,
// which these POSTs are not.
func CloseIdleConnections() {
	streamHTTPClient.CloseIdleConnections()
}

// Send pacing: one request per second per provider with a small burst,
// so retry loops cannot hammer an already overloaded API.
var (
	limiterMu    sync.Mutex
	sendLimiters = map[string]*rate.Limiter{}
)

// waitSendSlot blocks until the named provider's limiter releases a
// send slot.
func waitSendSlot(name string) {
	limiterMu.Lock()
	rl, ok := sendLimiters[name]
	if !ok {
		rl = rate.NewLimiter(rate.Limit(1.0), 4)
		sendLimiters[name] = rl
	}
	limiterMu.Unlock()
	if d := rl.Reserve().Delay(); d > 0 {
		time.Sleep(d)
	}
}

// lenientReader absorbs transport-level errors (chunked-encoding noise
// from TLS-intercepting proxies, connection resets) by converting them
// to io.EOF, so the SSE parser still processes everything that did
// arrive. The original error is kept for the caller to inspect.
type lenientReader struct {
	r   io.Reader
	err error
}

func (lr *lenientReader) Read(p []byte) (int, error) {
	n, err := lr.r.Read(p)
	if err != nil && err != io.EOF {
		lr.err = err
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, err
}

// sseScanner returns a line scanner sized for SSE payloads.
func sseScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}
