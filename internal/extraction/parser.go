package extraction

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rxledger/billscan/internal/domain/entity"
)

// parseSystemPrompt pins the exact JSON shape. Model output is still
// unreliable, so decoding stays tolerant regardless.
const parseSystemPrompt = `You are a pharmacy purchase-bill reading assistant.
You receive raw text extracted from one page of a supplier bill and must
return structured JSON with EXACTLY this shape:

{
  "invoice_number": "string or empty",
  "invoice_date": "string or empty",
  "supplier_name": "string or empty",
  "total_amount": number,
  "items": [
    {
      "medicine_name": "string",
      "quantity": number,
      "batch_number": "string or empty",
      "expiry_date": "string exactly as printed, or empty",
      "mrp": number,
      "rate": number
    }
  ]
}

Rules:
- Every sellable line on the bill becomes one item, in the order printed.
- "rate" is the purchase/cost rate per unit; "mrp" is the printed MRP.
- Never invent values. Use "" or 0 when a field is not on the page.
- Return ONLY the JSON object, no commentary.`

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFencePattern  = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// BillParser sends raw page text to a text model and tolerantly decodes
// the response into a ParsedBill. Malformed model output never raises:
// the page degrades to an empty item list and the import continues with
// whatever other pages produced. Only transport failures are errors.
type BillParser struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewBillParser creates a structured bill parser around a shared model client.
func NewBillParser(client *openai.Client, model string, logger *zap.Logger) *BillParser {
	return &BillParser{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Parse converts raw page text into a ParsedBill. The second return value
// reports degradation: true when the model response could not be decoded
// and an empty bill was substituted.
func (p *BillParser) Parse(ctx context.Context, rawText string) (*entity.ParsedBill, bool, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: parseSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: rawText,
			},
		},
	})
	if err != nil {
		p.logger.Error("Structured parse call failed", zap.Error(err))
		return nil, false, &Error{Stage: StageParse, Err: err}
	}

	if len(resp.Choices) == 0 {
		p.logger.Warn("Parse model returned no choices")
		return &entity.ParsedBill{}, true, nil
	}

	return DecodeBillResponse(resp.Choices[0].Message.Content, p.logger)
}

// DecodeBillResponse applies the tolerant decoding policy to a raw model
// response. It never returns an error: undecodable content yields an
// empty bill with degraded=true.
func DecodeBillResponse(content string, logger *zap.Logger) (*entity.ParsedBill, bool, error) {
	payload := extractJSONPayload(content)

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		// Last resort: the substring between the first '{' and last '}'.
		start := strings.Index(payload, "{")
		end := strings.LastIndex(payload, "}")
		if start == -1 || end <= start {
			logger.Warn("Bill parse degraded: no JSON object in model response",
				zap.Int("content_length", len(content)))
			return &entity.ParsedBill{}, true, nil
		}
		if err := json.Unmarshal([]byte(payload[start:end+1]), &raw); err != nil {
			logger.Warn("Bill parse degraded: malformed JSON in model response",
				zap.Error(err))
			return &entity.ParsedBill{}, true, nil
		}
	}

	bill := &entity.ParsedBill{
		InvoiceNumber: coerceString(pick(raw, "invoice_number", "invoiceNumber", "invoice_no")),
		InvoiceDate:   coerceString(pick(raw, "invoice_date", "invoiceDate")),
		SupplierName:  coerceString(pick(raw, "supplier_name", "supplierName", "supplier")),
		TotalAmount:   coerceNumber(pick(raw, "total_amount", "totalAmount")),
	}

	items, _ := pick(raw, "items", "line_items", "lineItems").([]interface{})
	for _, it := range items {
		fields, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		bill.Items = append(bill.Items, entity.ExtractedItem{
			MedicineName:   coerceString(pick(fields, "medicine_name", "medicineName", "productName", "product_name", "name")),
			Quantity:       int(coerceNumber(pick(fields, "quantity", "qty"))),
			BatchNumber:    coerceString(pick(fields, "batch_number", "batchNumber", "batch")),
			ExpiryDateText: coerceString(pick(fields, "expiry_date", "expiryDate", "expiry")),
			MRP:            coerceNumber(pick(fields, "mrp")),
			CostRate:       coerceNumber(pick(fields, "rate", "cost_rate", "costRate", "purchase_rate")),
		})
	}

	return bill, false, nil
}

// extractJSONPayload prefers a ```json fenced block, then any fenced
// block, then the full response.
func extractJSONPayload(content string) string {
	if m := jsonFencePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := anyFencePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// pick returns the first present key, tolerating the field-name
// spellings different model versions produce.
func pick(fields map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := fields[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// coerceNumber accepts numbers or numeric strings and clamps to
// non-negative; anything else defaults to 0.
func coerceNumber(v interface{}) float64 {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
