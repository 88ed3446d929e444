package main

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/api"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/config"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/ideas"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/logging"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/mock"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/session"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/store"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/stream"
)

//go:embed version.txt
var version string

// buildCommit is set via -ldflags or falls back to VCS info from debug.ReadBuildInfo.
var buildCommit string

var (
	appConfig  *config.Config
	apiClient  *api.Client
	generator  = mock.New()
	reconciler *ideas.Reconciler
	localStore *store.Store
	log        = logging.Get()

	respondMu    sync.Mutex
	configMu     sync.Mutex
	collectionMu sync.Mutex
	collection   ideas.Collection
)

type streamState struct {
	mu        sync.Mutex
	ctrl      *session.Controller
	requestID string
	canceled  bool
}

var activeStream streamState

func getBuildCommit() string {
	if buildCommit != "" {
		return buildCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	return ""
}

func versionString() string {
	v := strings.TrimSpace(version)
	if commit := getBuildCommit(); commit != "" {
		return v + " (" + commit + ")"
	}
	return v
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v":
			fmt.Printf("muse %s\n", versionString())
			return
		}
	}

	// Optional .env for MUSE_API_KEY / MUSE_DEBUG during development.
	_ = godotenv.Load()

	if os.Getenv("MUSE_DEBUG") == "1" {
		fmt.Fprintf(os.Stderr, "muse: process started with MUSE_DEBUG=1\n")
	}

	defer func() {
		if localStore != nil {
			localStore.Close()
		}
		log.Close()
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		handleRequest(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			respond("", map[string]any{
				"type":    "error",
				"message": "Request too large (max 1MB).",
			})
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "stdin error: %v\n", err)
		os.Exit(1)
	}
}

// ensureConfig loads config lazily on first use.
func ensureConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	if appConfig != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appConfig = cfg
	if !cfg.Offline && cfg.APIKey != "" {
		apiClient = api.NewClient(cfg.BaseURL, cfg.APIKey)
	}
	if reconciler == nil {
		// In-memory until init opens the local store.
		reconciler = ideas.NewReconciler(nil)
	}
	return nil
}

func offlineMode() bool {
	return apiClient == nil
}

func sessionTimeout() time.Duration {
	if appConfig == nil || appConfig.SessionTimeoutSecs <= 0 {
		return session.DefaultTimeout
	}
	return time.Duration(appConfig.SessionTimeoutSecs) * time.Second
}

func reserveActiveStream(reqID string) bool {
	activeStream.mu.Lock()
	defer activeStream.mu.Unlock()
	if activeStream.requestID != "" {
		return false
	}
	activeStream.requestID = reqID
	activeStream.ctrl = nil
	activeStream.canceled = false
	return true
}

func setActiveSession(reqID string, ctrl *session.Controller) bool {
	activeStream.mu.Lock()
	defer activeStream.mu.Unlock()
	if activeStream.requestID != reqID {
		return false
	}
	activeStream.ctrl = ctrl
	return true
}

func clearActiveStream(reqID string) {
	activeStream.mu.Lock()
	defer activeStream.mu.Unlock()
	if activeStream.requestID != reqID {
		return
	}
	activeStream.requestID = ""
	activeStream.ctrl = nil
	activeStream.canceled = false
}

func cancelActiveStream(targetID string) bool {
	activeStream.mu.Lock()
	if activeStream.requestID == "" {
		activeStream.mu.Unlock()
		return false
	}
	if targetID != "" && activeStream.requestID != targetID {
		activeStream.mu.Unlock()
		return false
	}
	ctrl := activeStream.ctrl
	activeStream.canceled = true
	activeStream.mu.Unlock()
	if ctrl != nil {
		ctrl.Cancel()
	}
	return true
}

func hasActiveStream() bool {
	activeStream.mu.Lock()
	defer activeStream.mu.Unlock()
	return activeStream.requestID != ""
}

func wasStreamCanceled(reqID string) bool {
	activeStream.mu.Lock()
	defer activeStream.mu.Unlock()
	return activeStream.requestID == reqID && activeStream.canceled
}

func handleRequest(line string) {
	var req map[string]any
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		log.Error("Invalid JSON request: %s", line)
		respond("", map[string]any{"type": "error", "message": "Invalid JSON"})
		return
	}

	action, _ := req["action"].(string)
	log.Request(action, line)
	reqID := requestID(req)

	switch action {
	case "ping":
		respond(reqID, map[string]any{"type": "ok"})

	case "version":
		respond(reqID, map[string]any{"type": "version", "version": versionString()})

	case "init":
		handleInit(reqID, req)

	case "generate":
		if !reserveActiveStream(reqID) {
			respond(reqID, map[string]any{"type": "error", "message": "Another generation is already in progress"})
			return
		}
		go handleGenerate(reqID, req)

	case "generate_batch":
		go handleGenerateBatch(reqID, req)

	case "rate_idea":
		go handleRateIdea(reqID, req)

	case "list_ideas":
		go handleListIdeas(reqID)

	case "ideas_filter":
		handleIdeasFilter(reqID, req)

	case "estimate_prompt":
		handleEstimatePrompt(reqID, req)

	case "cancel":
		targetID, _ := req["target_request_id"].(string)
		if !cancelActiveStream(targetID) {
			respond(reqID, map[string]any{"type": "error", "message": "No active generation to cancel"})
			return
		}
		respond(reqID, map[string]any{"type": "ok"})

	case "shutdown":
		if localStore != nil {
			localStore.Close()
		}
		log.Close()
		os.Exit(0)

	default:
		respond(reqID, map[string]any{"type": "error", "message": fmt.Sprintf("Unknown action: %s", action)})
	}
}

// handleInit loads config, opens the local cache and warms the collection
// from it. Initializing twice is harmless.
func handleInit(reqID string, req map[string]any) {
	if err := ensureConfig(); err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	dataDir, _ := req["data_dir"].(string)
	configMu.Lock()
	if localStore == nil {
		s, err := store.Open(dataDir)
		if err != nil {
			// The cache is an optimization; generation still works without it.
			log.Error("Failed to open local store: %v", err)
		} else {
			localStore = s
		}
	}
	if localStore != nil {
		reconciler = ideas.NewReconciler(localStore)
	} else if reconciler == nil {
		reconciler = ideas.NewReconciler(nil)
	}
	configMu.Unlock()

	cached := reconciler.LoadFallback(context.Background())
	collectionMu.Lock()
	collection = cached
	count := len(collection)
	collectionMu.Unlock()

	respond(reqID, map[string]any{
		"type":    "ok",
		"offline": offlineMode(),
		"cached":  count,
	})
}

// parseGenerationRequest builds a GenerationRequest from the raw request,
// filling gaps from config defaults.
func parseGenerationRequest(req map[string]any) ideas.GenerationRequest {
	prompt, _ := req["prompt"].(string)
	category, _ := req["category"].(string)
	language, _ := req["language"].(string)
	model, _ := req["model"].(string)

	creativity := 0
	if v, ok := req["creativity_level"].(float64); ok {
		creativity = int(v)
	}

	genReq := ideas.GenerationRequest{
		Prompt:          prompt,
		Category:        category,
		CreativityLevel: creativity,
		Language:        language,
		Model:           model,
	}
	if appConfig != nil {
		if genReq.Category == "" {
			genReq.Category = appConfig.DefaultCategory
		}
		if genReq.Language == "" {
			genReq.Language = appConfig.DefaultLanguage
		}
		if genReq.CreativityLevel == 0 {
			genReq.CreativityLevel = appConfig.DefaultCreativity
		}
		if genReq.Model == "" {
			genReq.Model = appConfig.DefaultModel
		}
		genReq.Stream = appConfig.Stream == nil || *appConfig.Stream
	} else {
		genReq.Stream = true
	}
	if v, ok := req["stream"].(bool); ok {
		genReq.Stream = v
	}
	return genReq
}

func handleGenerate(reqID string, req map[string]any) {
	defer clearActiveStream(reqID)

	if wasStreamCanceled(reqID) {
		respond(reqID, map[string]any{"type": "error", "message": "Generation aborted by user."})
		return
	}

	if err := ensureConfig(); err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	genReq := parseGenerationRequest(req)
	method, _ := req["method"].(string)

	if offlineMode() || method == ideas.MethodMock || method == ideas.MethodRandom {
		handleGenerateLocal(reqID, genReq, method)
		return
	}

	ctrl := session.New(apiClient, sessionTimeout())
	setActiveSession(reqID, ctrl)

	cb := session.Callbacks{
		OnEvent: func(ev stream.Event) {
			switch ev.Type {
			case stream.EventStart:
				respond(reqID, map[string]any{"type": "start"})
			case stream.EventChunk:
				resp := map[string]any{"type": "chunk", "content": ev.Content}
				if ev.Progress != nil {
					resp["progress"] = *ev.Progress
				}
				respond(reqID, resp)
			case stream.EventTitleChar:
				respond(reqID, map[string]any{"type": "title_char", "content": ev.Content})
			case stream.EventContentChar:
				respond(reqID, map[string]any{"type": "content_char", "content": ev.Content})
			}
		},
		OnComplete: func(idea ideas.Idea) {
			collectionMu.Lock()
			collection = reconciler.MergeOne(context.Background(), idea, collection)
			collectionMu.Unlock()
			respond(reqID, map[string]any{"type": "complete", "idea": idea})
		},
		OnError: func(err error) {
			title, content, progress := ctrl.Accumulated()
			resp := errorResponse(err)
			// Partial output stays usable after a failure.
			if title != "" || content != "" {
				resp["partial_title"] = title
				resp["partial_content"] = content
				resp["progress"] = progress
			}
			respond(reqID, resp)
		},
	}

	if err := ctrl.Generate(genReq, cb); err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	if ctrl.State() == session.StateCancelled {
		respond(reqID, map[string]any{"type": "error", "message": "Generation aborted by user."})
	}
}

// handleGenerateLocal produces an idea from the offline generator.
func handleGenerateLocal(reqID string, genReq ideas.GenerationRequest, method string) {
	if method == "" {
		method = ideas.MethodMock
	}
	idea, err := generator.Generate(context.Background(), genReq, method)
	if err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	collectionMu.Lock()
	collection = reconciler.MergeOne(context.Background(), *idea, collection)
	collectionMu.Unlock()
	respond(reqID, map[string]any{"type": "complete", "idea": idea})
}

func handleGenerateBatch(reqID string, req map[string]any) {
	if err := ensureConfig(); err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	var prompts []string
	if raw, ok := req["prompts"].([]any); ok {
		for _, v := range raw {
			if s, _ := v.(string); s != "" {
				prompts = append(prompts, s)
			}
		}
	}
	category, _ := req["category"].(string)
	language, _ := req["language"].(string)
	parallel, _ := req["parallel"].(bool)
	creativity := 0
	if v, ok := req["creativity_level"].(float64); ok {
		creativity = int(v)
	}

	batchReq := ideas.BatchRequest{
		Prompts:         prompts,
		Category:        category,
		CreativityLevel: creativity,
		Language:        language,
		Parallel:        parallel,
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout())
	defer cancel()

	var result *ideas.BatchResult
	var err error
	if offlineMode() {
		result, err = generator.GenerateBatch(ctx, batchReq)
	} else {
		result, err = apiClient.GenerateBatch(ctx, batchReq)
	}
	if err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	collectionMu.Lock()
	collection = reconciler.MergeMany(context.Background(), result.Ideas, collection)
	collectionMu.Unlock()

	respond(reqID, map[string]any{
		"type":          "batch_complete",
		"ideas":         result.Ideas,
		"total_count":   result.TotalCount,
		"success_count": result.SuccessCount,
		"failed_count":  result.FailedCount,
		"total_time":    result.TotalTime,
		"average_time":  result.AverageTime,
	})
}

// handleRateIdea applies the rating locally first, then syncs to the
// service. A remote failure keeps the local value.
func handleRateIdea(reqID string, req map[string]any) {
	id, _ := req["id"].(string)
	if id == "" {
		respond(reqID, map[string]any{"type": "error", "message": "Missing required field: id"})
		return
	}
	rating := 0
	if v, ok := req["rating"].(float64); ok {
		rating = int(v)
	}

	if err := ensureConfig(); err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	collectionMu.Lock()
	updated, err := ideas.SetRating(collection, id, rating)
	if err != nil {
		collectionMu.Unlock()
		respond(reqID, errorResponse(err))
		return
	}
	collection = updated
	reconciler.Persist(context.Background(), collection)
	collectionMu.Unlock()

	synced := false
	if !offlineMode() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiClient.RateIdea(ctx, id, rating); err != nil {
			log.Error("Remote rating sync failed for %s: %v", id, err)
		} else {
			synced = true
		}
	}

	respond(reqID, map[string]any{
		"type":          "ok",
		"id":            id,
		"rating":        rating,
		"remote_synced": synced,
	})
}

// handleListIdeas prefers the service's collection; when it is
// unreachable the cached copy is returned marked stale.
func handleListIdeas(reqID string) {
	if err := ensureConfig(); err != nil {
		respond(reqID, errorResponse(err))
		return
	}

	if !offlineMode() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		remote, total, err := apiClient.ListIdeas(ctx)
		if err == nil {
			collectionMu.Lock()
			collection = reconciler.MergeMany(context.Background(), remote, collection)
			current := collection
			collectionMu.Unlock()
			respond(reqID, map[string]any{
				"type":  "ideas",
				"ideas": current,
				"total": total,
			})
			return
		}
		log.Info("Remote list failed, serving cached collection: %v", err)
	}

	collectionMu.Lock()
	current := collection
	collectionMu.Unlock()
	respond(reqID, map[string]any{
		"type":  "ideas",
		"ideas": current,
		"total": len(current),
		"stale": true,
	})
}

// handleIdeasFilter filters and sorts the in-memory collection.
func handleIdeasFilter(reqID string, req map[string]any) {
	search, _ := req["search"].(string)
	category, _ := req["category"].(string)
	sortField, _ := req["sort"].(string)
	minRating := 0
	if v, ok := req["min_rating"].(float64); ok {
		minRating = int(v)
	}

	filter := ideas.Filter{
		Search:    search,
		Category:  category,
		MinRating: minRating,
	}

	collectionMu.Lock()
	current := collection
	collectionMu.Unlock()

	filtered := filter.Apply(current)
	if sortField != "" {
		filtered = filtered.SortBy(sortField)
	}

	respond(reqID, map[string]any{
		"type":  "ideas",
		"ideas": filtered,
		"total": len(filtered),
	})
}

func handleEstimatePrompt(reqID string, req map[string]any) {
	prompt, _ := req["prompt"].(string)
	if prompt == "" {
		respond(reqID, map[string]any{"type": "error", "message": "Missing required field: prompt"})
		return
	}
	tokens, err := api.EstimateTokens(prompt)
	if err != nil {
		tokens = api.EstimateTokensSimple(prompt)
	}
	respond(reqID, map[string]any{"type": "token_estimate", "tokens": tokens})
}

func errorResponse(err error) map[string]any {
	var msg string
	switch {
	case errors.Is(err, config.ErrNoConfig):
		msg = "Config file not found: ~/.config/muse/config.json"
	case errors.Is(err, config.ErrNoAPIKey):
		msg = "API key not set in config (set offline: true for local generation)"
	case errors.Is(err, ideas.ErrEmptyPrompt),
		errors.Is(err, ideas.ErrNoPrompts),
		errors.Is(err, ideas.ErrTooManyPrompts),
		errors.Is(err, ideas.ErrInvalidCreativity),
		errors.Is(err, ideas.ErrInvalidRating),
		errors.Is(err, ideas.ErrIdeaNotFound):
		msg = err.Error()
	case errors.Is(err, session.ErrSessionUsed):
		msg = "Generation session already used"
	case errors.Is(err, api.ErrRequestFailed):
		msg = "Generation service request failed: " + err.Error()
	default:
		msg = err.Error()
	}
	return map[string]any{"type": "error", "message": msg}
}

func respond(reqID string, data map[string]any) {
	out, _ := json.Marshal(addResponseID(reqID, data))
	msgType, _ := data["type"].(string)
	respondMu.Lock()
	defer respondMu.Unlock()
	log.Response(msgType, string(out))
	fmt.Println(string(out))
}

func addResponseID(reqID string, data map[string]any) map[string]any {
	if reqID == "" {
		return data
	}
	data["request_id"] = reqID
	return data
}

func requestID(req map[string]any) string {
	switch v := req["request_id"].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}
