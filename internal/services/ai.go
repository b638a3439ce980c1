package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hnakamura/project-management-api/internal/constants"
	"github.com/sashabaranov/go-openai"
)

// AIService wraps the OpenAI client. A nil client means the integration
// is not configured and the feature is disabled.
type AIService struct {
	client *openai.Client
}

// NewAIService creates an AIService. An empty API key leaves the client
// nil so callers can report the feature as disabled.
func NewAIService(apiKey string) *AIService {
	if apiKey == "" {
		return &AIService{}
	}
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// Configured reports whether an API key was provided.
func (s *AIService) Configured() bool {
	return s.client != nil
}

// GenerateUserStories asks the model for user stories based on a project
// description. The call is bounded by a timeout and retried once on
// failure before giving up.
func (s *AIService) GenerateUserStories(ctx context.Context, description string) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You are an agile requirements assistant. Based on the project description below, write user stories in the form "As a <role>, I want <goal> so that <benefit>."

Project description:
%s

Rules:
- Return at most %d stories
- One story per line, no numbering, no bullets, no extra commentary
- Each story must follow the "As a ..., I want ... so that ..." form`, description, constants.MaxGeneratedStories)

	req := openai.ChatCompletionRequest{
		Model: openai.GPT4o,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3,
	}

	content, err := s.complete(ctx, req)
	if err != nil {
		// One retry covers transient API hiccups.
		content, err = s.complete(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	stories := parseStories(content)
	if len(stories) == 0 {
		return nil, fmt.Errorf("no stories in OpenAI response")
	}
	return stories, nil
}

func (s *AIService) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.AIRequestTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseStories splits a model response into individual stories, one per
// line, tolerating bullets and numbering the model may add anyway.
func parseStories(content string) []string {
	var stories []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimLeft(line, "0123456789.) \t")
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		stories = append(stories, line)
		if len(stories) == constants.MaxGeneratedStories {
			break
		}
	}
	return stories
}
