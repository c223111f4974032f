package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog"

	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/server"
)

// startServer runs the real HTTP handler on an httptest server.
func (testCtx *TestContext) startServer(mutate func(*server.Config)) error {
	testCtx.StopServer()
	cfg := server.Config{
		Host:           "localhost",
		CORSOrigin:     "*",
		MaxUploadMB:    5,
		TimeoutSec:     10,
		PipelineConfig: pipeline.DefaultConfig(),
		OverlayEnabled: true,
		Logger:         zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) theSegmentationServerIsRunning() error {
	return testCtx.startServer(nil)
}

func (testCtx *TestContext) theServerIsRunningWithARateLimitOfPerMinute(n int) error {
	return testCtx.startServer(func(c *server.Config) {
		c.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: n, RequestsPerHour: 1000}
	})
}

func (testCtx *TestContext) theServerIsRunningWithOverlaysDisabled() error {
	return testCtx.startServer(func(c *server.Config) { c.OverlayEnabled = false })
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	resp, err := http.Get(testCtx.HTTPTestServer.URL + path) //nolint:noctx // test request
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

// iUpload posts the named temp image as the multipart "image" field.
func (testCtx *TestContext) iUpload(name, path string) error {
	if testCtx.HTTPTestServer == nil {
		return errors.New("server is not running")
	}
	data, err := os.ReadFile(testCtx.TempPath(name))
	if err != nil {
		return err
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	resp, err := http.Post(testCtx.HTTPTestServer.URL+path, w.FormDataContentType(), &body) //nolint:noctx // test request
	if err != nil {
		return err
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldReportWells(n int) error {
	var resp server.SegmentResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	if !resp.Success || resp.Result == nil {
		return fmt.Errorf("unsuccessful response: %s", testCtx.LastHTTPResponse)
	}
	if len(resp.Result.Wells) != n {
		return fmt.Errorf("response reports %d wells, want %d", len(resp.Result.Wells), n)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBeSet(name string) error {
	if _, ok := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; !ok {
		return fmt.Errorf("header %s missing, got %v", name, testCtx.LastHTTPHeaders)
	}
	return nil
}

// RegisterServerSteps registers HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the segmentation server is running$`, testCtx.theSegmentationServerIsRunning)
	sc.Step(`^the server is running with a rate limit of (\d+) per minute$`,
		testCtx.theServerIsRunningWithARateLimitOfPerMinute)
	sc.Step(`^the server is running with overlays disabled$`, testCtx.theServerIsRunningWithOverlaysDisabled)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUpload)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response should report (\d+) wells?$`, testCtx.theResponseShouldReportWells)
	sc.Step(`^the response header "([^"]*)" should be set$`, testCtx.theResponseHeaderShouldBeSet)
}
