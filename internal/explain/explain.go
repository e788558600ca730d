// Package explain produces AI explanations for answered questions and caches
// them per user so each question is only ever generated once.
package explain

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fe-learning/felearn/internal/catalog"
)

// MissingKeyMessage is shown instead of an explanation when no API key is
// configured. The feature degrades, it does not fail.
const MissingKeyMessage = "Please configure a Google API key (GEMINI_API_KEY) to generate explanations."

// ErrNoAPIKey marks a generator that has no credential configured.
var ErrNoAPIKey = errors.New("no generation API key configured")

// Key builds the cache key for one question of one quiz set.
func Key(courseID, quizSet string, questionID int) string {
	return fmt.Sprintf("%s_%s_%d", courseID, quizSet, questionID)
}

type Cache interface {
	Get(ctx context.Context, userName, key string) (string, bool, error)
	Put(ctx context.Context, userName, key, text string) error
}

// Generator is the remote text-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	cache Cache
	gen   Generator
}

func NewService(cache Cache, gen Generator) *Service {
	return &Service{cache: cache, gen: gen}
}

// Explain returns the cached explanation when present, otherwise generates,
// caches and returns a fresh one. The cache is only written on success.
func (s *Service) Explain(ctx context.Context, userName, courseID, quizSet string, q catalog.Question) (string, error) {
	key := Key(courseID, quizSet, q.ID)
	if text, ok, err := s.cache.Get(ctx, userName, key); err == nil && ok {
		return text, nil
	}

	text, err := s.gen.Generate(ctx, Prompt(q))
	if errors.Is(err, ErrNoAPIKey) {
		// Instructional message, deliberately not cached.
		return MissingKeyMessage, nil
	}
	if err != nil {
		return "", err
	}
	if err := s.cache.Put(ctx, userName, key, text); err != nil {
		return "", err
	}
	return text, nil
}

// Prompt renders the generation request for one question.
func Prompt(q catalog.Question) string {
	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var opts strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&opts, "%s: %s\n", k, q.Options[k])
	}
	return fmt.Sprintf(`Giải thích khái niệm sau chi tiết bằng tiếng việt:

Question: %s
Options:
%s
Correct Answer: %s

Provide a comprehensive explanation of why this answer is correct, including relevant theories, definitions,
and examples if applicable. If this is a math problem, please explain the solution step by step.
`, q.Question, opts.String(), q.Answer)
}

// MemoryCache keeps explanations for the process lifetime only. Used when
// the remote store is unreachable and in tests.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{m: map[string]string{}} }

func (c *MemoryCache) Get(_ context.Context, userName, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.m[userName+"|"+key]
	return text, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, userName, key, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[userName+"|"+key] = text
	return nil
}

// SQLCache stores explanations in the explanations table, upserting on the
// (user_name, explanation_key) unique pair.
type SQLCache struct {
	db *sql.DB
}

func NewSQLCache(db *sql.DB) *SQLCache { return &SQLCache{db: db} }

func (c *SQLCache) Get(ctx context.Context, userName, key string) (string, bool, error) {
	var text string
	err := c.db.QueryRowContext(ctx,
		`SELECT explanation_text FROM explanations WHERE user_name=$1 AND explanation_key=$2`,
		userName, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (c *SQLCache) Put(ctx context.Context, userName, key, text string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO explanations
		(user_name, explanation_key, explanation_text, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_name, explanation_key) DO UPDATE SET explanation_text=EXCLUDED.explanation_text`,
		userName, key, text, time.Now().Unix())
	return err
}

// GeminiClient calls the generateContent REST endpoint directly.
type GeminiClient struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Model   string
}

func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	return &GeminiClient{
		Client:  &http.Client{Timeout: 120 * time.Second},
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if g.APIKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("generate API returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
