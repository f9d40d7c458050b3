package assistant

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Run statuses reported by the upstream assistant service
const (
	StatusQueued         = "queued"
	StatusInProgress     = "in_progress"
	StatusRequiresAction = "requires_action"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusCancelled      = "cancelled"
	StatusExpired        = "expired"
)

// SearchToolName is the function tool the assistant calls to request a
// restaurant search
const SearchToolName = "search_restaurants"

// ToolCall is a structured side-action request emitted by a run
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Run is the orchestrator's view of one assistant processing pass
type Run struct {
	ID        string
	Status    string
	ToolCalls []ToolCall
}

// Client is the upstream assistant service contract. The orchestrator only
// depends on this interface; tests substitute a scripted implementation.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, content string) error
	StartRun(ctx context.Context, threadID string) (string, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	AcknowledgeToolCalls(ctx context.Context, threadID, runID string, calls []ToolCall) error
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

// OpenAIClient implements Client against the OpenAI assistants API
type OpenAIClient struct {
	client      *openai.Client
	assistantID string
}

// NewOpenAIClient creates a client bound to a provisioned assistant id
func NewOpenAIClient(client *openai.Client, assistantID string) *OpenAIClient {
	return &OpenAIClient{client: client, assistantID: assistantID}
}

// EnsureAssistant provisions the restaurant assistant once at startup. When
// OPENAI_ASSISTANT_ID is set the existing assistant is reused; otherwise a new
// one is created with the search tool schema attached.
func EnsureAssistant(ctx context.Context, client *openai.Client) (string, error) {
	if id := os.Getenv("OPENAI_ASSISTANT_ID"); id != "" {
		return id, nil
	}

	name := "Restaurant Assistant"
	instructions := "You are a helpful restaurant assistant. " +
		"Help users find restaurants and answer questions about food and dining. " +
		"When users ask about specific restaurants or cuisines, use the search_restaurants function to find relevant options."

	assistant, err := client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        openai.GPT4o,
		Name:         &name,
		Instructions: &instructions,
		Tools: []openai.AssistantTool{
			{
				Type:     openai.AssistantToolTypeFunction,
				Function: searchToolDefinition(),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create assistant: %w", err)
	}

	log.Info().Str("assistant_id", assistant.ID).Msg("Assistant provisioned")
	return assistant.ID, nil
}

func searchToolDefinition() *openai.FunctionDefinition {
	return &openai.FunctionDefinition{
		Name:        SearchToolName,
		Description: "Search for restaurants based on criteria",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query for restaurant name or cuisine",
				},
				"cuisine": map[string]interface{}{
					"type":        "string",
					"description": "Type of cuisine",
				},
				"price_range": map[string]interface{}{
					"type":        "string",
					"description": "Price range ($, $$, $$$, $$$$)",
				},
				"min_rating": map[string]interface{}{
					"type":        "number",
					"description": "Minimum rating (1-5)",
				},
				"location": map[string]interface{}{
					"type":        "string",
					"description": "City or neighborhood to search in",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to return",
				},
			},
			"required": []string{"query"},
		},
	}
}

// CreateThread starts a new durable conversation thread upstream
func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID, nil
}

// AddUserMessage appends a user message to the thread
func (c *OpenAIClient) AddUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("failed to append message to thread: %w", err)
	}
	return nil
}

// StartRun starts an assistant run against the thread
func (c *OpenAIClient) StartRun(ctx context.Context, threadID string) (string, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return run.ID, nil
}

// GetRun fetches the run's current status, including any pending tool calls
func (c *OpenAIClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve run: %w", err)
	}

	result := &Run{
		ID:     run.ID,
		Status: string(run.Status),
	}

	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
	}

	return result, nil
}

// AcknowledgeToolCalls submits a trivial success output for every pending tool
// call. The actual search is performed client-side; the run only needs the
// outputs to resume.
func (c *OpenAIClient) AcknowledgeToolCalls(ctx context.Context, threadID, runID string, calls []ToolCall) error {
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     `{"success": true}`,
		})
	}

	_, err := c.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	})
	if err != nil {
		return fmt.Errorf("failed to submit tool outputs: %w", err)
	}
	return nil
}

// LatestAssistantMessage returns the text of the newest assistant message on
// the thread
func (c *OpenAIClient) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 1
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list thread messages: %w", err)
	}

	for _, message := range list.Messages {
		if message.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		for _, part := range message.Content {
			if part.Text != nil {
				return part.Text.Value, nil
			}
		}
	}

	return "", fmt.Errorf("no assistant message found on thread %s", threadID)
}
