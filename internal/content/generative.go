package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Krimson/dadguide/internal/pregnancy"
	"github.com/Krimson/dadguide/internal/storage"
)

const (
	weekCacheKeyFormat = "week_%d_data_v2"
	tipCacheKeyFormat  = "final_tip_%d_%s"

	toneInstruction = "Be supportive, informative and empowering for a first-time father. " +
		"Stay sincere and playful, never condescending."
)

// GenerativeConfig - параметры OpenAI-совместимого API
type GenerativeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GenerativeProvider запрашивает руководство у языковой модели и кэширует
// ответ в хранилище. Повторов нет: ошибка сразу дает заглушку.
type GenerativeProvider struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	cache    storage.Store
	messages *DailyMessages
	now      func() time.Time

	mu       sync.Mutex
	inflight map[int]*request
}

type request struct {
	cancel context.CancelFunc
}

func NewGenerativeProvider(cfg GenerativeConfig, cache storage.Store) (*GenerativeProvider, error) {
	messages, err := LoadDailyMessages()
	if err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GenerativeProvider{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		timeout:  timeout,
		cache:    cache,
		messages: messages,
		now:      time.Now,
		inflight: make(map[int]*request),
	}, nil
}

// WeekContent возвращает руководство из кэша или запрашивает новое
func (p *GenerativeProvider) WeekContent(ctx context.Context, week int, profile pregnancy.Profile) (*WeekData, error) {
	if err := validWeek(week); err != nil {
		return nil, err
	}

	key := fmt.Sprintf(weekCacheKeyFormat, week)
	if cached, ok, err := p.cache.Get(ctx, key); err == nil && ok {
		var data WeekData
		if err := json.Unmarshal([]byte(cached), &data); err == nil {
			data.DailyMessages = p.messages.For(week)
			return &data, nil
		}
		log.Printf("[WARN] Dropping malformed cached content for week %d", week)
	}

	return p.fetch(ctx, week, profile)
}

// Refresh сбрасывает кэш недели и отменяет запрос, который еще выполняется
func (p *GenerativeProvider) Refresh(ctx context.Context, week int, profile pregnancy.Profile) (*WeekData, error) {
	if err := validWeek(week); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if prev, ok := p.inflight[week]; ok {
		prev.cancel()
		delete(p.inflight, week)
	}
	p.mu.Unlock()

	if err := p.cache.Delete(ctx, fmt.Sprintf(weekCacheKeyFormat, week)); err != nil {
		log.Printf("[WARN] Failed to drop cached content for week %d: %v", week, err)
	}
	return p.fetch(ctx, week, profile)
}

func (p *GenerativeProvider) fetch(ctx context.Context, week int, profile pregnancy.Profile) (*WeekData, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &request{cancel: cancel}
	p.mu.Lock()
	p.inflight[week] = req
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.inflight[week] == req {
			delete(p.inflight, week)
		}
		p.mu.Unlock()
	}()

	var data WeekData
	err := p.complete(reqCtx, weekPrompt(week, profile), &data)

	p.mu.Lock()
	superseded := p.inflight[week] != req
	p.mu.Unlock()
	if superseded {
		log.Printf("[CONTENT] Discarding superseded response for week %d", week)
		return nil, ErrSuperseded
	}

	if err != nil {
		log.Printf("[ERROR] Failed to fetch content for week %d: %v", week, err)
		fallback := Fallback(week)
		fallback.DailyMessages = p.messages.For(week)
		return fallback, nil
	}

	data.Week = week
	if data.Trimester == 0 {
		data.Trimester = TrimesterForWeek(week)
	}
	data.Error = ""
	data.DailyMessages = nil

	if encoded, err := json.Marshal(data); err == nil {
		if err := storage.Persist(ctx, p.cache, fmt.Sprintf(weekCacheKeyFormat, week), string(encoded)); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}

	data.DailyMessages = p.messages.For(week)
	log.Printf("[CONTENT] Generated guide for week %d", week)
	return &data, nil
}

// FinalCountdownTip - совет на день, кэшируется на календарный день
func (p *GenerativeProvider) FinalCountdownTip(ctx context.Context, daysRemaining int, profile pregnancy.Profile) string {
	key := fmt.Sprintf(tipCacheKeyFormat, daysRemaining, p.now().Format(pregnancy.DateLayout))

	var tip struct {
		Tip string `json:"tip"`
	}
	if cached, ok, err := p.cache.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal([]byte(cached), &tip); err == nil && tip.Tip != "" {
			return tip.Tip
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.complete(reqCtx, tipPrompt(daysRemaining, profile), &tip); err != nil || tip.Tip == "" {
		if err == nil {
			err = errors.New("empty tip")
		}
		log.Printf("[ERROR] Failed to fetch final countdown tip for day %d: %v", daysRemaining, err)
		return FallbackTip
	}

	if encoded, err := json.Marshal(tip); err == nil {
		if err := storage.Persist(ctx, p.cache, key, string(encoded)); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}
	return tip.Tip
}

// complete выполняет запрос в режиме JSON и разбирает ответ в out
func (p *GenerativeProvider) complete(ctx context.Context, prompt string, out any) error {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You write pregnancy guidance for expecting fathers. Reply with JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return errors.New("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode completion: %w", err)
	}
	return nil
}

func weekPrompt(week int, profile pregnancy.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a medically accurate, father-centric guide for week %d of pregnancy. %s ", week, toneInstruction)
	fmt.Fprintf(&b, "The partner's name is %s; use it where it makes the guide personal.\n\n", profile.PartnerName)
	b.WriteString("Cover fetal development with organ systems (status Forming, Developing or Functional), ")
	b.WriteString("the partner's physical and emotional changes with concrete support actions and warning-sign flags, ")
	b.WriteString("medical topics with simplified and detailed explanations plus advocacy scripts for appointments, ")
	b.WriteString("and the father's own experience with bonding opportunities and tasks.\n\n")
	b.WriteString("Return one JSON object with keys: week, trimester, ")
	b.WriteString("babySize{inches, grams, comparisonObject}, ")
	b.WriteString("fetalSystems[{name, status, fatherFriendlyExplanation, clinicalSignificance, whyThisMatters}], ")
	b.WriteString("didYouKnowFact, maternalChanges[{symptom, timeline, fatherActionItem, isWarningSign}], ")
	b.WriteString("medicalGuidance[{topic, simplifiedExplanation, detailedExplanation, fatherAdvocacyScript[]}], ")
	b.WriteString("warningSigns[], paternalGuidance{paternalChanges, bondingOpportunity, actionableTasks[]}.")
	return b.String()
}

func tipPrompt(daysRemaining int, profile pregnancy.Profile) string {
	return fmt.Sprintf("Give one short, actionable preparation tip for a first-time father whose partner %s "+
		"is %d days from her due date. Keep it calm, supportive and practical. "+
		`Return JSON of the form {"tip": "..."}.`, profile.PartnerName, daysRemaining)
}
