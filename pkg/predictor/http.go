package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/models"
)

// PredictRequest is the body posted to the model server for one tile.
type PredictRequest struct {
	Task   string    `json:"task"`
	Height int       `json:"height"`
	Width  int       `json:"width"`
	Data   []float32 `json:"data"` // row-major samples
}

// PredictResponse is the model server's answer for one tile.
type PredictResponse struct {
	Data []float32 `json:"data"` // row-major samples, same shape as the request
}

// HTTPClient calls a remote model server that hosts the restoration weights.
// It is safe for concurrent use.
type HTTPClient struct {
	url    *url.URL
	task   models.Task
	client *http.Client
}

// NewHTTPClient creates a client for the server at baseURL. A nil client
// gets a default one with the given timeout.
func NewHTTPClient(baseURL string, task models.Task, timeout time.Duration, client *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, &models.ConfigurationError{Reason: "invalid predictor endpoint", Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &models.ConfigurationError{Reason: fmt.Sprintf("invalid predictor endpoint %q", baseURL)}
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{url: u, task: task, client: client}, nil
}

// Ping checks that the server answers 200 on <endpoint>/healthz.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_url := c.url.JoinPath("/healthz").String()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, _url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	response, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		resp, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return fmt.Errorf("server response status code: %d, body: %s", response.StatusCode, resp)
	}
	return nil
}

// Predict sends tile to <endpoint>/v1/predict.
func (c *HTTPClient) Predict(ctx context.Context, tile *mat.Dense) (*mat.Dense, error) {
	rows, cols := tile.Dims()
	req := PredictRequest{
		Task:   string(c.task),
		Height: rows,
		Width:  cols,
		Data:   flatten(tile),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	_url := c.url.JoinPath("/v1/predict").String()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, _url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		resp, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return nil, fmt.Errorf("server response status code: %d, body: %s", response.StatusCode, resp)
	}

	var resp PredictResponse
	if err = json.NewDecoder(response.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	if len(resp.Data) != rows*cols {
		return nil, &models.ShapeMismatchError{
			Op:       "predict response",
			Expected: fmt.Sprintf("%d samples", rows*cols),
			Got:      fmt.Sprintf("%d samples", len(resp.Data)),
		}
	}

	return unflatten(resp.Data, rows, cols), nil
}

// flatten returns the samples of m in row-major order as float32.
func flatten(m *mat.Dense) []float32 {
	rows, cols := m.Dims()
	out := make([]float32, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for _, v := range m.RawRowView(r) {
			out = append(out, float32(v))
		}
	}
	return out
}

// unflatten builds a rows×cols matrix from row-major float32 samples.
func unflatten(data []float32, rows, cols int) *mat.Dense {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return mat.NewDense(rows, cols, out)
}
