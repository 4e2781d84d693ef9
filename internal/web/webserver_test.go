package web

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itay/go-helloweb/internal/applog"
	"github.com/itay/go-helloweb/internal/config"
)

func newTestServer(t *testing.T) (*WebServer, *applog.Sink) {
	t.Helper()
	logCfg := &config.LogConfig{
		Dir:   filepath.Join(t.TempDir(), "logs"),
		File:  "app.log",
		Level: "INFO",
	}
	sink, err := applog.Open(logCfg)
	if err != nil {
		t.Fatalf("applog.Open failed: %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	webCfg := &config.WebConfig{ListenAddr: "127.0.0.1", ListenPort: 5000}
	return NewServer(webCfg, sink, io.Discard), sink
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	n := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		n++
	}
	return n
}

func doRequest(s *WebServer, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.Router.ServeHTTP(w, req)
	return w
}

func TestRouteTable(t *testing.T) {
	s, sink := newTestServer(t)

	testCases := []struct {
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantLines  int // lines appended to the application log
	}{
		{"GET", "/", http.StatusOK, "Hello, World! By Itay", 1},
		{"GET", "/health", http.StatusOK, "OK", 0},
		{"GET", "/ready", http.StatusOK, "Ready", 0},
		{"GET", "/nope", http.StatusNotFound, "", 0},
		{"GET", "/health/extra", http.StatusNotFound, "", 0},
		{"POST", "/", http.StatusNotFound, "", 0},
		{"DELETE", "/ready", http.StatusNotFound, "", 0},
	}

	for _, tc := range testCases {
		before := countLines(t, sink.Path())
		w := doRequest(s, tc.method, tc.path)
		after := countLines(t, sink.Path())

		if w.Code != tc.wantStatus {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, w.Code, tc.wantStatus)
		}
		if tc.wantBody != "" && w.Body.String() != tc.wantBody {
			t.Errorf("%s %s: body = %q, want %q", tc.method, tc.path, w.Body.String(), tc.wantBody)
		}
		if after-before != tc.wantLines {
			t.Errorf("%s %s: appended %d log lines, want %d", tc.method, tc.path, after-before, tc.wantLines)
		}
	}
}

func TestHomePageLogLine(t *testing.T) {
	s, sink := newTestServer(t)

	for i := 0; i < 3; i++ {
		if w := doRequest(s, "GET", "/"); w.Code != http.StatusOK {
			t.Fatalf("GET /: status %d", w.Code)
		}
	}

	data, err := os.ReadFile(sink.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d: %q", len(lines), lines)
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "INFO: Homepage was accessed.") {
			t.Errorf("unexpected log line: %q", line)
		}
	}
}

func TestHeadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/", "/health", "/ready"} {
		w := doRequest(s, "HEAD", path)
		if w.Code != http.StatusOK {
			t.Errorf("HEAD %s: status = %d, want 200", path, w.Code)
		}
	}
}

func TestContentTypeAndSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, "GET", "/health")

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if hsts := w.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("HSTS must not be sent without SSL, got %q", hsts)
	}
}

func TestConcurrentHomePageRequests(t *testing.T) {
	s, sink := newTestServer(t)
	ts := httptest.NewServer(s.Router)
	defer ts.Close()

	const requests = 100
	var wg sync.WaitGroup
	errs := make(chan error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/")
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK || string(body) != HomePageBody {
				errs <- errors.New("unexpected response: " + resp.Status + " " + string(body))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("request failed: %v", err)
	}

	if got := countLines(t, sink.Path()); got != requests {
		t.Errorf("expected %d log lines, got %d", requests, got)
	}
}

func TestStartAndShutdown(t *testing.T) {
	// grab a free port
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	s, _ := newTestServer(t)
	s.Config.ListenPort = port

	errChan := make(chan error, 1)
	go func() { errChan <- s.Start() }()

	url := "http://" + s.Config.Addr() + "/ready"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != ReadyBody {
		t.Errorf("GET /ready body = %q, want %q", body, ReadyBody)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Start returned %v, want http.ErrServerClosed", err)
	}
}

func TestStartSSLWithoutCert(t *testing.T) {
	s, _ := newTestServer(t)
	s.Config.SSL = true
	if err := s.Start(); err == nil {
		t.Error("expected Start to fail with SSL and no cert/key")
	}
}

func TestReverseProxyHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	var seenHost, seenScheme string
	s.Router.GET("/echo-host", func(c *gin.Context) {
		seenHost = c.Request.Host
		seenScheme = c.Request.URL.Scheme
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/echo-host", nil)
	req.Header.Set("X-Forwarded-Host", "example.org, proxy.local")
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if seenHost != "example.org" {
		t.Errorf("Host = %q, want example.org", seenHost)
	}
	if seenScheme != "https" {
		t.Errorf("Scheme = %q, want https", seenScheme)
	}
}
