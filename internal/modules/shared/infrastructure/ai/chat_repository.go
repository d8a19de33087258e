package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"invoice-parser-api/internal/config"
	"invoice-parser-api/internal/modules/invoice/domain"
)

// maxErrorBody エラー時に保持するレスポンスボディの上限
const maxErrorBody = 2048

// ChatRequest チャットエンドポイントへのリクエスト
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Think    bool             `json:"think"`
}

type replyMessage struct {
	Content string `json:"content"`
}

// chatEnvelope OpenAI形式（choices）とOllama形式（message）の両方を受ける
type chatEnvelope struct {
	Choices []struct {
		Message *replyMessage `json:"message"`
	} `json:"choices"`
	Message *replyMessage `json:"message"`
}

// ChatRepository チャット補完APIのリポジトリ実装
type ChatRepository struct {
	model       string
	httpClient  *http.Client
	apiEndpoint string
}

// NewChatRepository 新しいChatRepositoryを作成
func NewChatRepository(cfg *config.ModelConfig) *ChatRepository {
	return &ChatRepository{
		model:       cfg.Name,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiEndpoint: cfg.EndpointURL,
	}
}

// SetHTTPClient テスト用にHTTPクライアントを設定（テストコードからのみ使用）
func (r *ChatRepository) SetHTTPClient(client *http.Client) {
	r.httpClient = client
}

// ParseInvoice 会話を送信し、応答を請求書JSONとして解析する
func (r *ChatRepository) ParseInvoice(ctx context.Context, conversation domain.Conversation) (domain.InvoiceData, error) {
	reply, err := r.Chat(ctx, conversation)
	if err != nil {
		return nil, err
	}

	slog.Info("Raw model reply received.")
	slog.Debug("Raw reply", "reply", reply)

	cleaned := domain.CleanJSONString(reply)

	// RawMessageへのUnmarshalで構文を検証する
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		slog.Debug("Failed to decode JSON from model response.", "error", err, "cleaned", cleaned)
		return nil, fmt.Errorf("failed to decode JSON from model response: %w", err)
	}

	slog.Info("Successfully parsed model response into JSON.")
	return domain.InvoiceData(raw), nil
}

// Chat 会話を送信し、アシスタントの返答文字列を返す
func (r *ChatRepository) Chat(ctx context.Context, conversation domain.Conversation) (string, error) {
	requestBody := ChatRequest{
		Model:    r.model,
		Messages: conversation,
		Stream:   false,
		Think:    false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	slog.Info("Sending request to model...", "model", r.model, "endpoint", r.apiEndpoint)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &domain.StatusError{URL: r.apiEndpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return ExtractContent(body)
}

// ExtractContent 応答JSONからchoices[0].message.content、なければmessage.contentを取り出す
func ExtractContent(body []byte) (string, error) {
	var envelope chatEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(envelope.Choices) > 0 && envelope.Choices[0].Message != nil && envelope.Choices[0].Message.Content != "" {
		return envelope.Choices[0].Message.Content, nil
	}
	if envelope.Message != nil && envelope.Message.Content != "" {
		return envelope.Message.Content, nil
	}
	return "", domain.ErrMissingContent
}

// ProviderName モデル名を返す
func (r *ChatRepository) ProviderName() string {
	return r.model
}
