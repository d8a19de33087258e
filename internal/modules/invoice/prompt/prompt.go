// Package prompt 請求書抽出モデルへ送る会話を組み立てる
package prompt

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"

	"invoice-parser-api/internal/modules/invoice/domain"
)

// SystemMessage 固定のシステム指示
const SystemMessage = "You are an invoice extraction assistant."

const invoiceTemplate = `You are an intelligent invoice parser.
Extract key fields from the following invoice text and return only valid JSON.
Invoice Text:
{{.invoice_text}}
Extracted JSON fields:
- invoice_number
- invoice_date
- vendor_name
- items (list of {description, quantity, price})
- subtotal
- tax
- total_amount
Return only valid JSON without explanation.`

var invoicePrompt = prompts.NewPromptTemplate(invoiceTemplate, []string{"invoice_text"})

// Render OCRテキストをテンプレートに埋め込む
func Render(invoiceText string) (string, error) {
	out, err := invoicePrompt.Format(map[string]any{"invoice_text": invoiceText})
	if err != nil {
		return "", fmt.Errorf("failed to render invoice prompt: %w", err)
	}
	return out, nil
}

// BuildConversation system と user の2メッセージを返す。テキストは長さに関係なくそのまま渡す
func BuildConversation(invoiceText string) (domain.Conversation, error) {
	userPrompt, err := Render(invoiceText)
	if err != nil {
		return nil, err
	}
	return domain.Conversation{
		{Role: domain.RoleSystem, Content: SystemMessage},
		{Role: domain.RoleUser, Content: userPrompt},
	}, nil
}
