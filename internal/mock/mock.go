// Package mock generates ideas locally without an API backend. It is
// used in offline mode and when a request explicitly asks for the
// "mock" or "random" generation method.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/ideas"
)

var templates = map[string][]string{
	"business": {
		"A subscription service built around %s, with a free community tier to seed adoption.",
		"A marketplace connecting people who need %s with local providers, taking a small matching fee.",
		"A B2B dashboard that tracks %s across an organization and surfaces cost-saving opportunities.",
	},
	"technology": {
		"An open-source toolkit for %s that plugs into existing CI pipelines.",
		"A privacy-first mobile app for %s that keeps all data on-device.",
		"An API layer that unifies %s across vendors behind one stable interface.",
	},
	"art": {
		"An interactive installation where visitors reshape %s in real time.",
		"A generative series exploring %s through daily algorithmic variations.",
	},
	"general": {
		"A community project organized around %s, starting with a monthly meetup.",
		"A step-by-step guide that makes %s approachable for complete beginners.",
		"A yearly challenge that gamifies %s with public progress tracking.",
	},
}

var titlePrefixes = []string{
	"Reimagining", "The Future of", "Everyday", "Open", "Rethinking",
}

// Generator produces ideas from local templates.
type Generator struct {
	rng *rand.Rand
}

// New returns a Generator seeded from the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed, for reproducible output.
func NewSeeded(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate produces a single idea for the request. The method should
// be ideas.MethodMock (template follows the request category) or
// ideas.MethodRandom (category is picked at random too).
func (g *Generator) Generate(_ context.Context, req ideas.GenerationRequest, method string) (*ideas.Idea, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if method != ideas.MethodMock && method != ideas.MethodRandom {
		method = ideas.MethodMock
	}

	category := req.Category
	if method == ideas.MethodRandom || category == "" {
		category = g.randomCategory()
	}
	pool, ok := templates[category]
	if !ok {
		pool = templates["general"]
	}

	subject := strings.TrimSpace(req.Prompt)
	content := fmt.Sprintf(pool[g.rng.Intn(len(pool))], subject)
	title := fmt.Sprintf("%s %s", titlePrefixes[g.rng.Intn(len(titlePrefixes))], titleCase(subject))

	language := req.Language
	if language == "" {
		language = "en"
	}

	return &ideas.Idea{
		ID:               uuid.NewString(),
		Title:            title,
		Content:          content,
		Category:         category,
		GenerationMethod: method,
		Language:         language,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// GenerateBatch produces one idea per prompt.
func (g *Generator) GenerateBatch(ctx context.Context, req ideas.BatchRequest) (*ideas.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	result := &ideas.BatchResult{TotalCount: len(req.Prompts)}
	for _, prompt := range req.Prompts {
		idea, err := g.Generate(ctx, ideas.GenerationRequest{
			Prompt:          prompt,
			Category:        req.Category,
			CreativityLevel: req.CreativityLevel,
			Language:        req.Language,
		}, ideas.MethodMock)
		if err != nil {
			result.FailedCount++
			continue
		}
		result.Ideas = append(result.Ideas, *idea)
		result.SuccessCount++
	}
	result.TotalTime = time.Since(start).Seconds()
	if result.SuccessCount > 0 {
		result.AverageTime = result.TotalTime / float64(result.SuccessCount)
	}
	return result, nil
}

func (g *Generator) randomCategory() string {
	keys := make([]string, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	// Map iteration order is random; sort for seed-stable selection.
	sort.Strings(keys)
	return keys[g.rng.Intn(len(keys))]
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
