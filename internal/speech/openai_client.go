package speech

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// refineSystemPrompt is the cleanup instruction sent ahead of every transcript.
const refineSystemPrompt = `You are a transcript cleanup specialist. Your task is to polish transcripts for text-to-speech systems by:
1. Removing filler words like "um", "uh", "like", "you know", etc.
2. Eliminating stutters and word repetitions
3. Fixing grammar issues while maintaining the original meaning
4. Making sentences flow naturally
5. Preserving the content and meaning of the original transcript

Return ONLY the cleaned transcript without explanations or additional text.`

// maxRefineTokens caps what we feed the refinement model. Anything longer is
// truncated before the request rather than rejected.
const maxRefineTokens = 6000

type OpenAIClient struct {
	client          *openai.Client
	transcribeModel string
	refineModel     string
}

func NewOpenAIClient(apiKey, transcribeModel, refineModel string) *OpenAIClient {
	if transcribeModel == "" {
		transcribeModel = openai.Whisper1
	}
	if refineModel == "" {
		refineModel = openai.GPT4o
	}
	return &OpenAIClient{
		client:          openai.NewClient(apiKey),
		transcribeModel: transcribeModel,
		refineModel:     refineModel,
	}
}

// AUDIO → TEXT
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if filename == "" {
		filename = "recording.webm"
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcribeModel,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("whisper request: %w", err)
	}

	return resp.Text, nil
}

// TEXT → CLEANED TEXT
func (c *OpenAIClient) Refine(ctx context.Context, text string) (RefineResult, error) {
	originalLength := len(text)

	input := truncateToTokens(text, c.refineModel, maxRefineTokens)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.refineModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: refineSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return RefineResult{}, fmt.Errorf("refine request: %w", err)
	}

	processed := ""
	if len(resp.Choices) > 0 {
		processed = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if processed == "" {
		processed = text
	}

	return RefineResult{
		Text:            processed,
		OriginalLength:  originalLength,
		ProcessedLength: len(processed),
	}, nil
}

func truncateToTokens(text, model string, limit int) string {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("o200k_base")
		if err != nil {
			return text
		}
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text
	}
	return enc.Decode(tokens[:limit])
}
