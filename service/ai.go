package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budget/config"
	"budget/models"
)

// ErrAIDisabled AI 未配置
var ErrAIDisabled = errors.New("ai is not enabled")

const receiptSystemPrompt = `You read receipts. Reply with a JSON array only, no prose.
Each element is {"amount": number, "currency": "vnd"|"usd"|"eur", "category": "food"|"transportation"|"utility"|"rent"|"health"}.
Use one element per line item. If nothing can be read reply with [].`

// ReceiptClient 调用 OpenAI 兼容 chat/completions 接口
type ReceiptClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewReceiptClient 创建客户端；未启用时返回 nil
func NewReceiptClient(cfg config.AIConfig) *ReceiptClient {
	if !cfg.Enabled {
		return nil
	}
	return &ReceiptClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// AIResult 文本回答或识别出的消费条目，二者只有一个非空
type AIResult struct {
	Text  string
	Items []models.ExpenseItem
}

// Value 返回给前端的 response 字段
func (r AIResult) Value() interface{} {
	if r.Items != nil {
		return r.Items
	}
	return r.Text
}

// UpstreamError AI 服务返回非 200
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ai upstream returned %d: %s", e.StatusCode, e.Body)
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze 文本提问返回回答；带图片时识别票据条目
// image 为不带 data URL 前缀的 base64
func (c *ReceiptClient) Analyze(ctx context.Context, prompt, image string) (AIResult, error) {
	if c == nil {
		return AIResult{}, ErrAIDisabled
	}

	var messages []chatMessage
	if image == "" {
		messages = []chatMessage{{Role: "user", Content: prompt}}
	} else {
		text := prompt
		if strings.TrimSpace(text) == "" {
			text = "Extract the expense items from this receipt."
		}
		messages = []chatMessage{
			{Role: "system", Content: receiptSystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: text},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + image}},
			}},
		}
	}

	reply, err := c.complete(ctx, messages)
	if err != nil {
		return AIResult{}, err
	}

	if image == "" {
		return AIResult{Text: reply}, nil
	}
	if items, ok := ParseExpenseItems(reply); ok {
		return AIResult{Items: items}, nil
	}
	return AIResult{Text: reply}, nil
}

func (c *ReceiptClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	jsonData, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Temperature: 0.1})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call ai service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read ai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("ai response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// ParseExpenseItems 解析模型输出的 JSON 数组，容忍 ``` 代码块包裹
// 任一条目不合法则整体视为解析失败
func ParseExpenseItems(reply string) ([]models.ExpenseItem, bool) {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:] // 去掉 ```json 语言标记
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}

	var items []models.ExpenseItem
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	for i := range items {
		items[i].Currency = strings.ToLower(items[i].Currency)
		items[i].Category = strings.ToLower(items[i].Category)
		if !items[i].Valid() {
			return nil, false
		}
	}
	if items == nil {
		items = []models.ExpenseItem{}
	}
	return items, true
}
