package ai

import "context"

const ROLE_SYSTEM = "system"
const ROLE_USER = "user"
const ROLE_ASSISTANT = "assistant"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Parameters struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type Request struct {
	Messages   []Message  `json:"messages"`
	Model      string     `json:"model"`
	Parameters Parameters `json:"parameters"`
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

type Response struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

type Model struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// ChatClient is the AI backend boundary. Stream delivers incremental text
// chunks; the error channel receives at most one terminal value after the
// chunk channel closes (nil on clean completion).
type ChatClient interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	Stream(ctx context.Context, req *Request) (<-chan string, <-chan error)
	ListModels(ctx context.Context) ([]Model, error)
}
