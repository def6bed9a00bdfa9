package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// VisionClient calls the image inference endpoint for object detection and
// caption generation. Both operations run against stored image references;
// the inference server resolves them to pixels.
//
// Endpoints:
//
//	POST {base}/v1/detect  {"image_ref": "..."} -> {"label": "...", "crop_ref": "..."}
//	POST {base}/v1/caption {"image_ref": "..."} -> {"caption": "..."}
type VisionClient struct {
	baseURL string
	http    *http.Client
}

func NewVisionClient(baseURL string) *VisionClient {
	return &VisionClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Detect returns the primary object label and a reference to the cropped
// detection region. An empty label means no object cleared the detector's
// confidence floor.
func (v *VisionClient) Detect(ctx context.Context, imageRef string) (label, cropRef string, err error) {
	var out struct {
		Label   string `json:"label"`
		CropRef string `json:"crop_ref"`
	}
	if err := v.post(ctx, "/v1/detect", imageRef, &out); err != nil {
		return "", "", err
	}
	return out.Label, out.CropRef, nil
}

// Caption generates a natural-language caption for the referenced image crop.
func (v *VisionClient) Caption(ctx context.Context, cropRef string) (string, error) {
	var out struct {
		Caption string `json:"caption"`
	}
	if err := v.post(ctx, "/v1/caption", cropRef, &out); err != nil {
		return "", err
	}
	if out.Caption == "" {
		return "", errors.New("inference: caption generation returned no text")
	}
	return out.Caption, nil
}

func (v *VisionClient) post(ctx context.Context, path, imageRef string, out any) error {
	if v.baseURL == "" {
		return errors.New("inference: vision endpoint not configured")
	}

	body, err := json.Marshal(map[string]string{"image_ref": imageRef})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("inference: build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference: vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inference: vision %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("inference: decode vision response: %w", err)
	}
	return nil
}
