package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// visionPrompt asks for a faithful transcription, not interpretation.
// Structured parsing happens in a separate stage against the raw text.
const visionPrompt = `Read this scanned pharmacy purchase bill and return ALL visible text.

Preserve the layout as closely as possible: keep table rows on their own
lines and keep column values in their original order. Do not summarize,
do not interpret, do not omit anything. Return only the raw text.`

// imageMIMETypes maps the accepted upload extensions to their MIME type
// for the data URL sent to the model.
var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// VisionExtractor sends one page image to a vision-capable model and
// returns the raw text it reads. Any transport or model failure is fatal
// to the whole import; a missing page corrupts downstream totals.
type VisionExtractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewVisionExtractor creates a vision extractor around a shared model client.
func NewVisionExtractor(client *openai.Client, model string, logger *zap.Logger) *VisionExtractor {
	return &VisionExtractor{
		client: client,
		model:  model,
		logger: logger,
	}
}

// ExtractText reads the image at imagePath and returns the model's text
// content. An empty response yields an empty string, not an error.
func (e *VisionExtractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(imagePath))
	mimeType, ok := imageMIMETypes[ext]
	if !ok {
		return "", &Error{Stage: StageVision, Err: fmt.Errorf("unsupported image type: %s", ext)}
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", &Error{Stage: StageVision, Err: fmt.Errorf("failed to read image: %w", err)}
	}

	encoded := base64.StdEncoding.EncodeToString(data)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   4096,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: visionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		e.logger.Error("Vision extraction call failed",
			zap.String("image", imagePath),
			zap.Error(err))
		return "", &Error{Stage: StageVision, Err: err}
	}

	if len(resp.Choices) == 0 {
		e.logger.Warn("Vision model returned no choices", zap.String("image", imagePath))
		return "", nil
	}

	text := resp.Choices[0].Message.Content
	e.logger.Debug("Extracted page text",
		zap.String("image", imagePath),
		zap.Int("text_length", len(text)))

	return text, nil
}
