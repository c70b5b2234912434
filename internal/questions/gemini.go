package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"quibluff/internal/domain"
	"quibluff/internal/logger"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator: часть *genai.Models, нужная провайдеру
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiProvider struct {
	models  contentGenerator
	model   string
	newRand func() *rand.Rand
	now     func() time.Time
	log     *slog.Logger
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGeminiProvider(client.Models, model), nil
}

func newGeminiProvider(models contentGenerator, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		models: models,
		model:  model,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		now: time.Now,
		log: logger.With("component", "gemini"),
	}
}

// один элемент JSON-массива от модели
type generatedQuestion struct {
	Text          string   `json:"text"`
	CorrectAnswer string   `json:"correctAnswer"`
	WrongOptions  []string `json:"wrongOptions"`
}

var questionSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"text":          {Type: genai.TypeString, Description: "The question text"},
			"correctAnswer": {Type: genai.TypeString, Description: "The correct answer, a few words at most"},
			"wrongOptions": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Exactly 3 wrong options (required for classic mode, empty for bluff)",
			},
		},
		Required: []string{"text", "correctAnswer"},
	},
}

func prompt(topic string, count int, mode domain.GameMode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d trivia questions about %q.\n", count, topic)
	if mode == domain.ModeClassic {
		b.WriteString("Mode: classic multiple choice. Provide the correct answer and 3 distinct, plausible incorrect options.")
	} else {
		b.WriteString("Mode: bluff. Provide ONLY the correct answer. Questions should be obscure enough for players to invent believable fake answers.")
	}
	return b.String()
}

func (p *GeminiProvider) Generate(ctx context.Context, topic string, count int, mode domain.GameMode) ([]domain.Question, error) {
	count = ClampCount(count)
	started := p.now()

	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(prompt(topic, count, mode)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("gemini generate: %w: empty response", ErrNoQuestions)
	}
	var generated []generatedQuestion
	if err := json.Unmarshal([]byte(raw), &generated); err != nil {
		return nil, fmt.Errorf("gemini decode: %w", err)
	}

	qs := p.toQuestions(generated, topic, count, mode)
	if len(qs) == 0 {
		return nil, ErrNoQuestions
	}
	p.log.Info("questions generated", "topic", topic, "mode", mode, "count", len(qs), "took", p.now().Sub(started))
	return qs, nil
}

func (p *GeminiProvider) toQuestions(generated []generatedQuestion, topic string, count int, mode domain.GameMode) []domain.Question {
	rng := p.newRand()
	stamp := strconv.FormatInt(p.now().UnixMilli(), 10)

	qs := make([]domain.Question, 0, len(generated))
	for _, g := range generated {
		if len(qs) == count {
			break
		}
		text := strings.TrimSpace(g.Text)
		answer := strings.TrimSpace(g.CorrectAnswer)
		if text == "" || answer == "" {
			continue
		}
		i := len(qs)
		q := domain.Question{
			ID:            "gen-" + stamp + "-" + strconv.Itoa(i),
			Text:          text,
			CorrectAnswer: answer,
			Category:      topic,
		}
		if mode == domain.ModeClassic {
			q.Options = BuildClassicOptions(i, answer, g.WrongOptions, rng)
		}
		qs = append(qs, q)
	}
	return qs
}
