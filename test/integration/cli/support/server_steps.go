package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/server"
)

func (testCtx *TestContext) startServer(rl config.RateLimitConfig) error {
	srv, err := server.NewServer(server.Config{
		CORSOrigin: "*",
		TimeoutSec: 30,
		PoolSize:   2,
		Version:    "integration",
		RateLimit:  rl,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.Server = srv
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) stopServer() {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	if testCtx.Server != nil {
		_ = testCtx.Server.Close()
		testCtx.Server = nil
	}
}

func (testCtx *TestContext) theBarcodeServerIsRunning() error {
	return testCtx.startServer(config.RateLimitConfig{})
}

func (testCtx *TestContext) theBarcodeServerIsRunningWithRateLimit(perMinute int) error {
	return testCtx.startServer(config.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute})
}

func (testCtx *TestContext) requireServer() error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("the barcode server is not running")
	}
	return nil
}

func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatus = resp.StatusCode
	testCtx.LastHTTPBody = body
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := testCtx.HTTPServer.Client().Get(testCtx.HTTPServer.URL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return testCtx.recordResponse(resp)
}

// iUploadTo posts a fixture as a multipart form. The form field is "pdf"
// for .pdf files and "image" otherwise.
func (testCtx *TestContext) iUploadTo(name, path string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", name, err)
	}

	field := "image"
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		field = "pdf"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := testCtx.HTTPServer.Client().Post(testCtx.HTTPServer.URL+path, mw.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return testCtx.recordResponse(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatus != status {
		return fmt.Errorf("expected status %d, got %d\nbody: %s", status, testCtx.LastHTTPStatus, testCtx.LastHTTPBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldNotBeEmpty(name string) error {
	if testCtx.LastHTTPHeaders.Get(name) == "" {
		return fmt.Errorf("response header %s is empty", name)
	}
	return nil
}

// lookup walks a dotted path such as "result.text" through decoded JSON.
func lookup(doc any, path string) (any, error) {
	cur := doc
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, fmt.Errorf("field %q not found", path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", key, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q of %q", key, path)
		}
	}
	return cur, nil
}

func (testCtx *TestContext) theResponseJSONShouldBe(path, expected string) error {
	var doc any
	if err := json.Unmarshal(testCtx.LastHTTPBody, &doc); err != nil {
		return fmt.Errorf("response is not JSON: %w\nbody: %s", err, testCtx.LastHTTPBody)
	}
	v, err := lookup(doc, path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseBodyShouldContain(expected string) error {
	if !bytes.Contains(testCtx.LastHTTPBody, []byte(expected)) {
		return fmt.Errorf("response body does not contain %q\nbody: %s", expected, testCtx.LastHTTPBody)
	}
	return nil
}

func (testCtx *TestContext) iDecodeOverTheWebsocket(name string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", name, err)
	}

	url := "ws" + strings.TrimPrefix(testCtx.HTTPServer.URL, "http") + "/ws/decode"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err := conn.WriteJSON(server.WebSocketDecodeRequest{Type: "image", Image: data}); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(30 * time.Second)); err != nil {
		return err
	}

	testCtx.LastWSResponses = nil
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		testCtx.LastWSResponses = append(testCtx.LastWSResponses, msg)
		if status := msg["status"]; status == "completed" || status == "error" {
			return nil
		}
	}
}

func (testCtx *TestContext) theWebsocketResponseShouldBe(path, expected string) error {
	if len(testCtx.LastWSResponses) == 0 {
		return fmt.Errorf("no websocket responses received")
	}
	last := testCtx.LastWSResponses[len(testCtx.LastWSResponses)-1]
	v, err := lookup(last, path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected websocket %s to be %q, got %q", path, expected, got)
	}
	return nil
}

// RegisterServerSteps registers HTTP and websocket steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the barcode server is running$`, testCtx.theBarcodeServerIsRunning)
	sc.Step(`^the barcode server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theBarcodeServerIsRunningWithRateLimit)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should not be empty$`, testCtx.theResponseHeaderShouldNotBeEmpty)
	sc.Step(`^the response JSON "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONShouldBe)
	sc.Step(`^the response body should contain "([^"]*)"$`, testCtx.theResponseBodyShouldContain)
	sc.Step(`^I decode "([^"]*)" over the websocket$`, testCtx.iDecodeOverTheWebsocket)
	sc.Step(`^the websocket response "([^"]*)" should be "([^"]*)"$`, testCtx.theWebsocketResponseShouldBe)
}
