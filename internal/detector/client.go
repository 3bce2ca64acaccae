package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/devix/thermoscan/pkg/models"
)

// HTTPClient implements Client against the inference service's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a detector client with a per-call timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Predict(ctx context.Context, filename string, image []byte) ([]models.Finding, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	u := c.baseURL + "/api/predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var raw []map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	findings := make([]models.Finding, 0, len(raw))
	for _, item := range raw {
		findings = append(findings, parseFinding(item))
	}
	return findings, nil
}

func (c *HTTPClient) UpdateThresholds(ctx context.Context, fb ThresholdFeedback) error {
	payload, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("encoding feedback: %w", err)
	}

	u := c.baseURL + "/update_thresholds"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// parseFinding maps one response object to a Finding. Fields the detector did
// not send stay nil. The inference service reports numbers inconsistently
// (sometimes as quoted strings), so numeric fields accept both forms.
func parseFinding(item map[string]json.RawMessage) models.Finding {
	return models.Finding{
		FaultType:   stringField(item, "fault_type"),
		Severity:    floatField(item, "severity"),
		Confidence:  floatField(item, "confidence"),
		XCoordinate: floatField(item, "x_coordinate"),
		YCoordinate: floatField(item, "y_coordinate"),
		BBox:        jsonField(item, "bbox"),
		AreaPx:      floatField(item, "area_px"),
		HotspotX:    floatField(item, "hotspot_x"),
		HotspotY:    floatField(item, "hotspot_y"),
	}
}

func stringField(item map[string]json.RawMessage, key string) *string {
	raw, ok := item[key]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func floatField(item map[string]json.RawMessage, key string) *float64 {
	raw, ok := item[key]
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

func jsonField(item map[string]json.RawMessage, key string) json.RawMessage {
	raw, ok := item[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	return raw
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

var _ Client = (*HTTPClient)(nil)
