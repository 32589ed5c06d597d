package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type httpClient struct {
	baseUrl    string
	apiKey     string
	httpClient *http.Client
}

var _ ChatClient = new(httpClient)

func NewHttpClient(baseUrl string, apiKey string, timeout time.Duration) *httpClient {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &httpClient{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) newRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	method := http.MethodPost
	if body == nil {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

func (c *httpClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	wire := toWire(req, false)
	var out *Response
	operation := func() error {
		httpReq, err := c.newRequest(ctx, "/v1/chat/completions", wire)
		if err != nil {
			return backoff.Permanent(err)
		}
		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			return fmt.Errorf("ai backend transient error: status %d", httpResp.StatusCode)
		}
		var wireResp wireResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&wireResp); err != nil {
			return backoff.Permanent(err)
		}
		if wireResp.Error != nil {
			return backoff.Permanent(fmt.Errorf("ai backend error: %s", wireResp.Error.Message))
		}
		if len(wireResp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("ai backend returned no choices"))
		}
		out = &Response{Content: wireResp.Choices[0].Message.Content}
		if wireResp.Usage != nil {
			out.Usage = &Usage{
				PromptTokens:     wireResp.Usage.PromptTokens,
				CompletionTokens: wireResp.Usage.CompletionTokens,
			}
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) Stream(ctx context.Context, req *Request) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		httpReq, err := c.newRequest(ctx, "/v1/chat/completions", toWire(req, true))
		if err != nil {
			errs <- err
			return
		}
		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			errs <- err
			return
		}
		defer httpResp.Body.Close()
		if httpResp.StatusCode != http.StatusOK {
			errs <- fmt.Errorf("ai backend stream error: status %d", httpResp.StatusCode)
			return
		}
		scanner := bufio.NewScanner(httpResp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			var wireResp wireResponse
			if err := json.Unmarshal([]byte(data), &wireResp); err != nil {
				continue
			}
			if len(wireResp.Choices) == 0 {
				continue
			}
			if delta := wireResp.Choices[0].Delta.Content; delta != "" {
				select {
				case chunks <- delta:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()
	return chunks, errs
}

func (c *httpClient) ListModels(ctx context.Context) ([]Model, error) {
	httpReq, err := c.newRequest(ctx, "/v1/models", nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	var listResp struct {
		Data []struct {
			Id   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&listResp); err != nil {
		return nil, err
	}
	models := make([]Model, 0, len(listResp.Data))
	for _, m := range listResp.Data {
		name := m.Name
		if name == "" {
			name = m.Id
		}
		models = append(models, Model{Id: m.Id, Name: name})
	}
	return models, nil
}

func toWire(req *Request, stream bool) *wireRequest {
	wire := &wireRequest{
		Model:       req.Model,
		MaxTokens:   req.Parameters.MaxTokens,
		Temperature: req.Parameters.Temperature,
		Stream:      stream,
	}
	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, wireMessage(m))
	}
	return wire
}
