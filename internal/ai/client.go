package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/medscan/radiology-service/internal/config"
)

// DefaultModel is used when a caller does not override the model name.
const DefaultModel = "resnet50"

// ErrNotConfigured is returned when no inference endpoint is set. The
// workflow treats it like any other failure: log and skip annotation.
var ErrNotConfigured = fmt.Errorf("inference endpoint not configured")

// Prediction is the parsed response of the classification service.
type Prediction struct {
	PredictedClass      string  `json:"predicted_class"`
	Confidence          float64 `json:"confidence"`
	BenignProbability   float64 `json:"benign_probability"`
	MalignantProbability float64 `json:"malignant_probability"`

	// Raw is the verbatim response body, retained for auditing.
	Raw []byte `json:"-"`
}

// Client calls the external classification service. Construct one at
// process start and inject it into the scan service; there is no
// package-level instance.
type Client struct {
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient builds an inference client from configuration.
func NewClient(cfg config.AIConfig, logger *slog.Logger) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = DefaultModel
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:      cfg.ServiceURL,
		defaultModel: model,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// predictURL normalizes the configured base endpoint so it ends with
// /predict, inserting a path separator when the base lacks one.
func (c *Client) predictURL() (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	serviceURL := c.baseURL
	if !strings.HasSuffix(serviceURL, "/predict") {
		if !strings.HasSuffix(serviceURL, "/") {
			serviceURL += "/"
		}
		serviceURL += "predict"
	}

	return serviceURL, nil
}

// Predict uploads the image at imagePath and returns the parsed
// prediction. modelName may be empty to use the configured default.
// One attempt, no retry; any non-200 status or malformed body is an
// error. Callers in the intake workflow absorb all errors as a
// "no result" outcome.
func (c *Client) Predict(ctx context.Context, imagePath, modelName string) (*Prediction, error) {
	serviceURL, err := c.predictURL()
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = c.defaultModel
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	requestURL := serviceURL + "?" + url.Values{"model_name": {modelName}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("inference service error",
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return nil, fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	var prediction Prediction
	if err := json.Unmarshal(respBody, &prediction); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}
	prediction.Raw = respBody

	return &prediction, nil
}
