package ideas

import (
	"errors"
	"strings"
	"time"
)

// Sentinel errors for request validation and collection lookups.
var (
	ErrEmptyPrompt       = errors.New("prompt cannot be empty")
	ErrNoPrompts         = errors.New("batch requires at least one prompt")
	ErrTooManyPrompts    = errors.New("batch supports max 10 prompts")
	ErrInvalidCreativity = errors.New("creativity_level must be between 1 and 10")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrIdeaNotFound      = errors.New("idea not found")
)

// MaxBatchPrompts is the server-side limit on prompts per batch request.
const MaxBatchPrompts = 10

// Generation method values recorded on an Idea.
const (
	MethodLLM       = "llm"
	MethodMock      = "mock"
	MethodRandom    = "random"
	MethodStreaming = "streaming"
	MethodBatch     = "batch"
)

// Idea is the finalized content record produced by one generation request.
// An Idea is either fully formed (id, title, content, created_at) or does
// not exist; partial state never reaches a Collection.
type Idea struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Category         string    `json:"category,omitempty"`
	Rating           int       `json:"rating,omitempty"` // 1-5, 0 = unrated
	GenerationMethod string    `json:"generation_method,omitempty"`
	Language         string    `json:"language,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// GenerationRequest carries the input parameters for one generation session.
// Constructed by the caller and not mutated afterwards.
type GenerationRequest struct {
	Prompt          string `json:"prompt"`
	Category        string `json:"category,omitempty"`
	CreativityLevel int    `json:"creativity_level,omitempty"`
	Language        string `json:"language,omitempty"`
	Model           string `json:"model,omitempty"`
	Stream          bool   `json:"stream,omitempty"`
}

// Validate rejects invalid requests before any network call is made.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	if r.CreativityLevel != 0 && (r.CreativityLevel < 1 || r.CreativityLevel > 10) {
		return ErrInvalidCreativity
	}
	return nil
}

// BatchRequest carries the input parameters for one batch generation call.
type BatchRequest struct {
	Prompts         []string `json:"prompts"`
	Category        string   `json:"category,omitempty"`
	CreativityLevel int      `json:"creativity_level,omitempty"`
	Language        string   `json:"language,omitempty"`
	Parallel        bool     `json:"parallel,omitempty"`
}

// Validate rejects invalid batch requests before any network call is made.
func (r BatchRequest) Validate() error {
	if len(r.Prompts) == 0 {
		return ErrNoPrompts
	}
	if len(r.Prompts) > MaxBatchPrompts {
		return ErrTooManyPrompts
	}
	for _, p := range r.Prompts {
		if strings.TrimSpace(p) == "" {
			return ErrEmptyPrompt
		}
	}
	if r.CreativityLevel != 0 && (r.CreativityLevel < 1 || r.CreativityLevel > 10) {
		return ErrInvalidCreativity
	}
	return nil
}

// BatchResult is the response of the batch generation endpoint.
type BatchResult struct {
	Ideas        []Idea  `json:"ideas"`
	TotalCount   int     `json:"total_count"`
	SuccessCount int     `json:"success_count"`
	FailedCount  int     `json:"failed_count"`
	TotalTime    float64 `json:"total_time"`
	AverageTime  float64 `json:"average_time"`
}

// Collection is an ordered sequence of ideas, newest first.
// Merge operations return a new Collection rather than mutating in place.
type Collection []Idea
