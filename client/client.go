// Package client is a small Go client for the detection API, usable both
// as a smoke-test tool and from other services.
package client

import (
	"encoding/base64"
	"fmt"
	"time"

	iface "MicroDetServer/interface"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// Client talks to one detection server instance.
type Client struct {
	base string
	http *resty.Client
}

// New builds a client for the given base URL, e.g. "http://localhost:5000".
func New(baseURL string) *Client {
	return &Client{
		base: baseURL,
		http: resty.New().SetTimeout(defaultTimeout),
	}
}

// HealthResponse mirrors GET /api/health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	DemoMode    bool   `json:"demo_mode"`
}

// ClassEntry is one supported particle type.
type ClassEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type classesResponse struct {
	Classes []ClassEntry `json:"classes"`
}

// PredictResponse mirrors POST /api/predict.
type PredictResponse struct {
	RequestID            string            `json:"request_id"`
	Detections           []iface.Detection `json:"detections"`
	Summary              iface.Summary     `json:"summary"`
	AnnotatedImageBase64 string            `json:"annotated_image_base64"`
}

// AnnotatedImage decodes the inline annotated image bytes.
func (p *PredictResponse) AnnotatedImage() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.AnnotatedImageBase64)
}

// Health checks the service status.
func (c *Client) Health() (*HealthResponse, error) {
	var out HealthResponse
	resp, err := c.http.R().
		SetResult(&out).
		Get(c.base + "/api/health")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("health check failed: %s, body: %s", resp.Status(), resp.String())
	}
	return &out, nil
}

// Classes lists the supported particle types.
func (c *Client) Classes() ([]ClassEntry, error) {
	var out classesResponse
	resp, err := c.http.R().
		SetResult(&out).
		Get(c.base + "/api/classes")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("classes request failed: %s, body: %s", resp.Status(), resp.String())
	}
	return out.Classes, nil
}

// Predict submits raw image bytes through the base64 JSON mode and returns
// the detection result.
func (c *Client) Predict(image []byte) (*PredictResponse, error) {
	var out PredictResponse
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"image": base64.StdEncoding.EncodeToString(image)}).
		SetResult(&out).
		Post(c.base + "/api/predict")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("predict failed: %s, body: %s", resp.Status(), resp.String())
	}
	return &out, nil
}
