package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultFishBaseURL = "https://api.fish.audio"

// FishClient talks to the Fish Audio API: TTS plus voice-model creation.
type FishClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewFishClient(apiKey string) *FishClient {
	return &FishClient{
		apiKey:  apiKey,
		baseURL: defaultFishBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// TEXT → SPEECH
func (c *FishClient) Synthesize(ctx context.Context, text, modelID string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"text":         text,
		"reference_id": modelID,
		"format":       "mp3",
		"mp3_bitrate":  128,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tts response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tts failed: %s", providerError(body))
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("tts returned empty audio")
	}

	return body, nil
}

// VOICE SAMPLE → MODEL
func (c *FishClient) CreateModel(ctx context.Context, audio []byte, transcript string) (CreateModelResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("voices", "recording.webm")
	if err != nil {
		return CreateModelResult{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return CreateModelResult{}, err
	}

	fields := map[string]string{
		"visibility":            "private",
		"type":                  "tts",
		"title":                 "Voice Mirror Model",
		"train_mode":            "fast",
		"enhance_audio_quality": "true",
	}
	if transcript != "" {
		fields["texts"] = transcript
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return CreateModelResult{}, err
		}
	}
	if err := w.Close(); err != nil {
		return CreateModelResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/model", &buf)
	if err != nil {
		return CreateModelResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return CreateModelResult{}, fmt.Errorf("create model request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CreateModelResult{}, fmt.Errorf("read create model response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return CreateModelResult{}, fmt.Errorf("create model failed: %s", providerError(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return CreateModelResult{}, fmt.Errorf("decode create model response: %w", err)
	}

	modelID, ok := extractModelID(parsed)
	if !ok {
		// The provider answered 2xx but nothing in the payload looks like a
		// model id. Treat it as a failed creation instead of inventing one.
		return CreateModelResult{}, fmt.Errorf("create model response has no recognizable model id")
	}

	status := "pending"
	if s, ok := parsed["status"].(string); ok && s != "" {
		status = s
	}

	return CreateModelResult{ModelID: modelID, Status: status}, nil
}

// extractModelID looks for the canonical identifier in the known spots of the
// provider response shape.
func extractModelID(data map[string]any) (string, bool) {
	for _, key := range []string{"id", "model_id", "reference_id"} {
		if id, ok := asID(data[key]); ok {
			return id, true
		}
	}
	for _, key := range []string{"job", "task"} {
		if nested, ok := data[key].(map[string]any); ok {
			if id, ok := asID(nested["id"]); ok {
				return id, true
			}
		}
	}
	return "", false
}

func asID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id, true
		}
	case float64:
		return fmt.Sprintf("%.0f", id), true
	}
	return "", false
}

// providerError pulls a human-readable message out of a provider error body
// without forwarding the raw payload to callers.
func providerError(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return string(body)
}
