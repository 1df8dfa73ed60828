package model

// CompletionRequest is one chat completion call with a JSON object response.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}
