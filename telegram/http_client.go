package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const DEFAULT_API_BASE_URL = "https://api.telegram.org"

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Result      json.RawMessage `json:"result"`
}

type sentMessage struct {
	MessageId int64 `json:"message_id"`
}

type httpClient struct {
	baseUrl    string
	httpClient *http.Client
}

var _ Client = new(httpClient)

func NewHttpClient(baseUrl string, timeout time.Duration) *httpClient {
	if baseUrl == "" {
		baseUrl = DEFAULT_API_BASE_URL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) call(ctx context.Context, token string, method string, body map[string]any) (*apiResponse, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseUrl, token, method)
	var resp *apiResponse
	operation := func() error {
		payload, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()
		var apiResp apiResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&apiResp); err != nil {
			return err
		}
		// 429 and 5xx are transient; everything else is the caller's problem.
		if !apiResp.Ok && (httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500) {
			return fmt.Errorf("telegram api transient error %d: %s", apiResp.ErrorCode, apiResp.Description)
		}
		resp = &apiResp
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *httpClient) SendMessage(ctx context.Context, token string, chatId int64, text string, opts *SendOptions) (int64, error) {
	body := map[string]any{
		"chat_id": chatId,
		"text":    text,
	}
	applyOptions(body, opts)
	resp, err := c.call(ctx, token, "sendMessage", body)
	if err != nil {
		return 0, err
	}
	if !resp.Ok {
		return 0, fmt.Errorf("sendMessage failed: %s", resp.Description)
	}
	return messageId(resp), nil
}

func (c *httpClient) EditMessageText(ctx context.Context, token string, chatId int64, messageId int64, text string) error {
	body := map[string]any{
		"chat_id":    chatId,
		"message_id": messageId,
		"text":       text,
	}
	resp, err := c.call(ctx, token, "editMessageText", body)
	if err != nil {
		return err
	}
	if !resp.Ok {
		if strings.Contains(resp.Description, "message is not modified") {
			return nil
		}
		return fmt.Errorf("editMessageText failed: %s", resp.Description)
	}
	return nil
}

func (c *httpClient) SendPhoto(ctx context.Context, token string, chatId int64, photoUrl string, caption string, opts *SendOptions) (int64, error) {
	body := map[string]any{
		"chat_id": chatId,
		"photo":   photoUrl,
		"caption": caption,
	}
	applyOptions(body, opts)
	resp, err := c.call(ctx, token, "sendPhoto", body)
	if err != nil {
		return 0, err
	}
	if !resp.Ok {
		return 0, fmt.Errorf("sendPhoto failed: %s", resp.Description)
	}
	return messageId(resp), nil
}

func (c *httpClient) SendDocument(ctx context.Context, token string, chatId int64, fileUrl string, caption string) (int64, error) {
	body := map[string]any{
		"chat_id":  chatId,
		"document": fileUrl,
		"caption":  caption,
	}
	resp, err := c.call(ctx, token, "sendDocument", body)
	if err != nil {
		return 0, err
	}
	if !resp.Ok {
		return 0, fmt.Errorf("sendDocument failed: %s", resp.Description)
	}
	return messageId(resp), nil
}

func (c *httpClient) SendChatAction(ctx context.Context, token string, chatId int64, action string) error {
	body := map[string]any{
		"chat_id": chatId,
		"action":  action,
	}
	resp, err := c.call(ctx, token, "sendChatAction", body)
	if err != nil {
		return err
	}
	if !resp.Ok {
		logger.Debug("sendChatAction rejected", zap.String("description", resp.Description))
	}
	return nil
}

func applyOptions(body map[string]any, opts *SendOptions) {
	if opts == nil {
		return
	}
	if opts.ParseMode != "" {
		body["parse_mode"] = opts.ParseMode
	}
	if opts.ReplyMarkup != nil {
		body["reply_markup"] = opts.ReplyMarkup
	}
}

func messageId(resp *apiResponse) int64 {
	var msg sentMessage
	if err := json.Unmarshal(resp.Result, &msg); err != nil {
		return 0
	}
	return msg.MessageId
}
