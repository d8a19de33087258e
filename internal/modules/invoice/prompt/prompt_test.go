package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-parser-api/internal/modules/invoice/domain"
)

func TestRender(t *testing.T) {
	out, err := Render("Invoice #INV-1 Total $10.00")
	require.NoError(t, err)

	want := `You are an intelligent invoice parser.
Extract key fields from the following invoice text and return only valid JSON.
Invoice Text:
Invoice #INV-1 Total $10.00
Extracted JSON fields:
- invoice_number
- invoice_date
- vendor_name
- items (list of {description, quantity, price})
- subtotal
- tax
- total_amount
Return only valid JSON without explanation.`

	assert.Equal(t, want, out)
}

func TestRender_PassesTextVerbatim(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "template delimiters", text: "{{.invoice_text}} {{ end }}"},
		{name: "html characters", text: "<b>Acme & Sons</b> \"quoted\""},
		{name: "multiline", text: "line 1\n\nline 3\t\ttabbed"},
		{name: "large", text: strings.Repeat("Widget 1 x $2.00\n", 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(tt.text)
			require.NoError(t, err)
			assert.Contains(t, out, "Invoice Text:\n"+tt.text+"\nExtracted JSON fields:")
		})
	}
}

func TestBuildConversation(t *testing.T) {
	conv, err := BuildConversation("Invoice #INV-1")
	require.NoError(t, err)
	require.Len(t, conv, 2)

	assert.Equal(t, domain.RoleSystem, conv[0].Role)
	assert.Equal(t, "You are an invoice extraction assistant.", conv[0].Content)
	assert.Equal(t, domain.RoleUser, conv[1].Role)
	assert.Contains(t, conv[1].Content, "Invoice #INV-1")
}
