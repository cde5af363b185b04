package docai

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sangtrankt98/invoice-collection/internal/pipeline"
)

const systemPrompt = `You are an accounting assistant. Extract the accounting document in the input into a JSON object with exactly these keys:
document_type, document_number, date, entity_name, entity_tax_number, counterparty_name, counterparty_tax_number, payment_method, amount_before_tax, tax_rate, tax_amount, total_amount, direction, description.
Use the document's own wording for text fields. Dates use YYYY-MM-DD. Monetary fields and tax_rate are numbers without thousands separators. Set any field you cannot determine to null. Respond with the JSON object only.`

// Client extracts document fields through the OpenAI chat API.
// Text documents and rendered images use separate models.
type Client struct {
	api        *openai.Client
	textModel  string
	imageModel string
}

// NewClient creates an extraction client.
func NewClient(apiKey, textModel, imageModel string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return &Client{
		api:        openai.NewClient(apiKey),
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// ExtractFromText extracts document fields from plain text content.
func (c *Client) ExtractFromText(ctx context.Context, text string) (*pipeline.ExtractionRecord, error) {
	if text == "" {
		return nil, fmt.Errorf("text is empty")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.textModel,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("text extraction request failed: %w", err)
	}

	return recordFromResponse(resp)
}

// ExtractFromImage extracts document fields from a JPEG or PNG image.
func (c *Client) ExtractFromImage(ctx context.Context, imageData []byte) (*pipeline.ExtractionRecord, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(imageData))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.imageModel,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("image extraction request failed: %w", err)
	}

	return recordFromResponse(resp)
}

func recordFromResponse(resp openai.ChatCompletionResponse) (*pipeline.ExtractionRecord, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction response has no choices")
	}
	return ParseRecord(resp.Choices[0].Message.Content)
}
