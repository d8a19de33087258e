package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role 会話メッセージのロール
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message 会話の1メッセージ
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation モデルへ送るメッセージ列（system → user の順）
type Conversation []Message

// InvoiceData モデルが返した請求書JSON（スキーマは強制しない）
type InvoiceData json.RawMessage

// ImageSource リクエストで受け取った画像の入力元
type ImageSource struct {
	HasFile  bool
	FileName string
	File     []byte
	URL      string
}

// MarshalJSON 受け取ったJSONをそのまま返す
func (d InvoiceData) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// CleanJSONString モデル出力からMarkdownのコードフェンスを取り除く
//
// 先頭の```jsonと末尾の```をそれぞれ独立に、完全一致のときだけ除去する。
func CleanJSONString(reply string) string {
	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(reply, fenceOpen) {
		reply = strings.TrimSpace(reply[len(fenceOpen):])
	}
	if strings.HasSuffix(reply, fenceClose) {
		reply = strings.TrimSpace(reply[:len(reply)-len(fenceClose)])
	}
	return reply
}
