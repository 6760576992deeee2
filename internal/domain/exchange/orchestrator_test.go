package exchange_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"velvet-server/internal/domain/chat"
	"velvet-server/internal/domain/exchange"
	"velvet-server/internal/domain/grounding"
	"velvet-server/internal/utils/platformerrors"
)

// memRepo is an in-memory chat.Repository with optional append failure
// injection.
type memRepo struct {
	mu         sync.Mutex
	chats      map[string]*chat.Chat
	messages   []*chat.Message
	nextID     uint
	failAppend int
}

func newMemRepo() *memRepo {
	return &memRepo{chats: make(map[string]*chat.Chat), nextID: 1}
}

func (r *memRepo) addChat(publicID string, userID uint) *chat.Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &chat.Chat{ID: r.nextID, PublicID: publicID, UserID: userID, Title: "t"}
	r.nextID++
	r.chats[publicID] = c
	return c
}

func (r *memRepo) Create(ctx context.Context, c *chat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	r.chats[c.PublicID] = c
	return nil
}

func (r *memRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]*chat.Chat, error) {
	return nil, nil
}

func (r *memRepo) FindByPublicIDAndUser(ctx context.Context, publicID string, userID uint) (*chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[publicID]
	if !ok || c.UserID != userID || c.IsDeleted {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "chat not found", nil, "")
	}
	cp := *c
	return &cp, nil
}

func (r *memRepo) ListMessages(ctx context.Context, chatID uint) ([]*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chat.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) RecentMessages(ctx context.Context, chatID uint, limit int) ([]*chat.Message, error) {
	all, err := r.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *memRepo) AppendMessage(ctx context.Context, msg *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend > 0 {
		r.failAppend--
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError, "append failed", nil, "")
	}
	msg.ID = r.nextID
	r.nextID++
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memRepo) SoftDelete(ctx context.Context, chatID uint) error { return nil }

type mockGenerator struct {
	generateFunc func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult
	calls        int
	mu           sync.Mutex
}

func (g *mockGenerator) Generate(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.generateFunc(ctx, req)
}

func newOrchestrator(repo *memRepo, gen exchange.Generator) *exchange.Orchestrator {
	chats := chat.NewService(repo, 50)
	assembler := grounding.NewAssembler(nil, nil, time.Second, zerolog.Nop())
	return exchange.NewOrchestrator(chats, assembler, gen, 10, zerolog.Nop())
}

func echoGenerator() *mockGenerator {
	return &mockGenerator{
		generateFunc: func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			return exchange.GenerationResult{Content: "reply", Model: "test-model"}
		},
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	repo := newMemRepo()
	gen := echoGenerator()
	o := newOrchestrator(repo, gen)

	_, err := o.SendMessage(context.Background(), exchange.Input{
		UserID: 1, ChatPublicID: "chat_missing", Content: "hi",
	})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not run for unknown chats")
	}
}

func TestSendMessagePersistsBothMessages(t *testing.T) {
	repo := newMemRepo()
	c := repo.addChat("chat_a", 1)
	o := newOrchestrator(repo, echoGenerator())

	res, err := o.SendMessage(context.Background(), exchange.Input{
		UserID: 1, ChatPublicID: "chat_a", Content: "hello there",
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	msgs, _ := repo.ListMessages(context.Background(), c.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[0].Content != "hello there" {
		t.Errorf("first message should be the user's, got %+v", msgs[0])
	}
	if msgs[1].Role != chat.RoleAssistant || msgs[1].Content != "reply" {
		t.Errorf("second message should be the reply, got %+v", msgs[1])
	}
	if msgs[1].Metadata["model"] != "test-model" || msgs[1].Metadata["fallback"] != false {
		t.Errorf("assistant metadata incomplete: %+v", msgs[1].Metadata)
	}
	if res.UserMessage.PublicID != msgs[0].PublicID || res.AssistantMessage.PublicID != msgs[1].PublicID {
		t.Errorf("result messages do not match persisted messages: %+v", res)
	}
	if res.ContextUsed {
		t.Error("no grounding was requested, context_used must be false")
	}
}

func TestSendMessageIncludesHistoryInPrompt(t *testing.T) {
	repo := newMemRepo()
	c := repo.addChat("chat_a", 1)
	repo.messages = append(repo.messages,
		&chat.Message{ChatID: c.ID, Role: chat.RoleUser, Content: "first question"},
		&chat.Message{ChatID: c.ID, Role: chat.RoleAssistant, Content: "first answer"},
	)

	var prompt string
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			prompt = req.Prompt
			return exchange.GenerationResult{Content: "r", Model: "m"}
		},
	}
	o := newOrchestrator(repo, gen)

	if _, err := o.SendMessage(context.Background(), exchange.Input{
		UserID: 1, ChatPublicID: "chat_a", Content: "second question",
	}); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"user: first question", "assistant: first answer", "user: second question", "assistant:"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, codes []string) ([]grounding.Series, error) {
	return []grounding.Series{{
		Code: codes[0], Name: "Inflation",
		Points: []grounding.SeriesPoint{{Period: "2024-01", Value: "2.9"}},
	}}, nil
}

func TestSendMessagePassesGroundingToGenerator(t *testing.T) {
	repo := newMemRepo()
	repo.addChat("chat_a", 1)

	var gotContext string
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			gotContext = req.Context
			return exchange.GenerationResult{Content: "r", Model: "m"}
		},
	}
	chats := chat.NewService(repo, 50)
	assembler := grounding.NewAssembler(nil, stubFetcher{}, time.Second, zerolog.Nop())
	o := exchange.NewOrchestrator(chats, assembler, gen, 10, zerolog.Nop())

	res, err := o.SendMessage(context.Background(), exchange.Input{
		UserID: 1, ChatPublicID: "chat_a", Content: "how is inflation?",
		Grounding: grounding.Options{SeriesCodes: []string{"PN01288PM"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotContext, "PN01288PM") {
		t.Errorf("generator did not receive grounding block: %q", gotContext)
	}
	if !res.ContextUsed {
		t.Error("context_used must be true when grounding contributed")
	}
	if res.AssistantMessage.Metadata["context_used"] != true {
		t.Errorf("assistant metadata missing context_used: %+v", res.AssistantMessage.Metadata)
	}
}

func TestSendMessageFallbackIsFlagged(t *testing.T) {
	repo := newMemRepo()
	repo.addChat("chat_a", 1)
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			return exchange.GenerationResult{Content: "fallback for: " + req.Query, Model: "fallback", Fallback: true}
		},
	}
	o := newOrchestrator(repo, gen)

	res, err := o.SendMessage(context.Background(), exchange.Input{
		UserID: 1, ChatPublicID: "chat_a", Content: "q",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback {
		t.Error("fallback result must be flagged")
	}
}

func TestSendMessageSurvivesClientDisconnect(t *testing.T) {
	repo := newMemRepo()
	c := repo.addChat("chat_a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	gen := &mockGenerator{
		generateFunc: func(gctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			cancel()
			if gctx.Err() != nil {
				t.Error("generation context must be detached from the client connection")
			}
			return exchange.GenerationResult{Content: "r", Model: "m"}
		},
	}
	o := newOrchestrator(repo, gen)

	if _, err := o.SendMessage(ctx, exchange.Input{
		UserID: 1, ChatPublicID: "chat_a", Content: "q",
	}); err != nil {
		t.Fatalf("exchange must complete after disconnect, got %v", err)
	}

	msgs, _ := repo.ListMessages(context.Background(), c.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected both messages persisted after disconnect, got %d", len(msgs))
	}
}

func TestSendMessageRetriesAssistantPersistOnce(t *testing.T) {
	repo := newMemRepo()
	c := repo.addChat("chat_a", 1)

	// Fail the assistant append once. Arming the failure from inside the
	// generator leaves the earlier user append untouched.
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			repo.mu.Lock()
			repo.failAppend = 1
			repo.mu.Unlock()
			return exchange.GenerationResult{Content: "reply", Model: "test-model"}
		},
	}
	o := newOrchestrator(repo, gen)

	_, err := o.SendMessage(context.Background(), exchange.Input{
		UserID: 1, ChatPublicID: "chat_a", Content: "q",
	})
	if err != nil {
		t.Fatalf("single append failure must be retried, got %v", err)
	}
	msgs, _ := repo.ListMessages(context.Background(), c.ID)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after retry, got %d", len(msgs))
	}
}

func TestSendMessageReportsUnpersistedReply(t *testing.T) {
	repo := newMemRepo()
	c := repo.addChat("chat_a", 1)
	// Both the assistant append and its retry fail; arming the failures
	// from inside the generator keeps the earlier user append intact.
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			repo.mu.Lock()
			repo.failAppend = 2
			repo.mu.Unlock()
			return exchange.GenerationResult{Content: "reply", Model: "test-model"}
		},
	}
	o := newOrchestrator(repo, gen)

	_, err := o.SendMessage(context.Background(), exchange.Input{
		UserID: 1, ChatPublicID: "chat_a", Content: "q",
	})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	msgs, _ := repo.ListMessages(context.Background(), c.ID)
	if len(msgs) != 1 || msgs[0].Role != chat.RoleUser {
		t.Fatalf("user message must remain persisted, got %+v", msgs)
	}
}

func TestConcurrentSendsToSameChatDoNotInterleave(t *testing.T) {
	repo := newMemRepo()
	c := repo.addChat("chat_a", 1)
	gen := &mockGenerator{
		generateFunc: func(ctx context.Context, req exchange.GenerationRequest) exchange.GenerationResult {
			time.Sleep(10 * time.Millisecond)
			return exchange.GenerationResult{Content: "r", Model: "m"}
		},
	}
	o := newOrchestrator(repo, gen)

	const sends = 5
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.SendMessage(context.Background(), exchange.Input{
				UserID: 1, ChatPublicID: "chat_a", Content: "q",
			})
			if err != nil {
				t.Errorf("SendMessage returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, _ := repo.ListMessages(context.Background(), c.ID)
	if len(msgs) != sends*2 {
		t.Fatalf("expected %d messages, got %d", sends*2, len(msgs))
	}
	for i := 0; i < len(msgs); i += 2 {
		if msgs[i].Role != chat.RoleUser || msgs[i+1].Role != chat.RoleAssistant {
			t.Fatalf("message pairs interleaved at index %d: %s then %s", i, msgs[i].Role, msgs[i+1].Role)
		}
	}
}
