package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/generate"
	"github.com/hunterwarburton/porsa/internal/intent"
)

type fakePipeline struct {
	result  core.ChatResult
	err     error
	lastReq core.Request
}

func (f *fakePipeline) Chat(ctx context.Context, req core.Request) (core.ChatResult, error) {
	f.lastReq = req
	return f.result, f.err
}

type fakeCatalog struct {
	brands     []string
	categories []string
	err        error
}

func (f *fakeCatalog) ListBrands(ctx context.Context, max int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.brands, nil
}

func (f *fakeCatalog) ListCategories(ctx context.Context, max int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

type fakePolicy struct {
	admins  map[int64]bool
	allowed map[int64]bool
}

func (f *fakePolicy) IsAdmin(userID int64) bool { return f.admins[userID] }

func (f *fakePolicy) IsAllowed(userID int64) bool {
	if f.allowed == nil {
		return true
	}
	return f.allowed[userID]
}

func testBot(pipeline *fakePipeline, catalog CatalogBrowser, rulesPath string) *Bot {
	return &Bot{
		pipeline:   pipeline,
		catalog:    catalog,
		policy:     &fakePolicy{admins: map[int64]bool{100: true}},
		classifier: intent.NewClassifier(intent.DefaultRules(), 0, core.IntentGeneralInquiry),
		rulesPath:  rulesPath,
	}
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "start", commandName("/start"))
	assert.Equal(t, "brands", commandName("/brands@shop_bot"))
	assert.Equal(t, "reload", commandName("/reload now please"))
	assert.Equal(t, "help", commandName("/help@shop_bot extra"))
}

func TestCommandReplyStartAndHelp(t *testing.T) {
	b := testBot(&fakePipeline{}, nil, "")

	start := b.commandReply(context.Background(), "start", 1)
	assert.Contains(t, start, "دستیار فروش")
	assert.Contains(t, start, "/help")

	help := b.commandReply(context.Background(), "help", 1)
	assert.Contains(t, help, "/brands")
	assert.Contains(t, help, "/categories")
}

func TestCommandReplyUnknown(t *testing.T) {
	b := testBot(&fakePipeline{}, nil, "")

	assert.Equal(t, unknownCommandText, b.commandReply(context.Background(), "weather", 1))
}

func TestCommandReplyBrands(t *testing.T) {
	catalog := &fakeCatalog{brands: []string{"سامسونگ", "اپل"}}
	b := testBot(&fakePipeline{}, catalog, "")

	reply := b.commandReply(context.Background(), "brands", 1)
	assert.Contains(t, reply, "برندهای موجود:")
	assert.Contains(t, reply, "• سامسونگ")
	assert.Contains(t, reply, "• اپل")
}

func TestCommandReplyCategoriesEmptyCatalog(t *testing.T) {
	b := testBot(&fakePipeline{}, &fakeCatalog{}, "")

	assert.Equal(t, emptyCatalogText, b.commandReply(context.Background(), "categories", 1))
}

func TestCommandReplyBrandsFailure(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("milvus down")}
	b := testBot(&fakePipeline{}, catalog, "")

	assert.Equal(t, browseFailedText, b.commandReply(context.Background(), "brands", 1))
}

func TestCommandReplyBrandsWithoutCatalog(t *testing.T) {
	b := testBot(&fakePipeline{}, nil, "")

	assert.Equal(t, browseFailedText, b.commandReply(context.Background(), "brands", 1))
}

func TestReloadRequiresAdmin(t *testing.T) {
	b := testBot(&fakePipeline{}, nil, "")

	assert.Equal(t, notAdminText, b.commandReply(context.Background(), "reload", 7))
}

func TestReloadSwapsRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intents.yaml")
	rules := `version: "tg-v3"
intents:
  - intent: greeting
    patterns: ["سلام"]
`
	require.NoError(t, os.WriteFile(path, []byte(rules), 0o644))

	b := testBot(&fakePipeline{}, nil, path)

	reply := b.commandReply(context.Background(), "reload", 100)
	assert.Contains(t, reply, "tg-v3")
	assert.Equal(t, "tg-v3", b.classifier.RulesVersion())
}

func TestChatReplyPassesThroughAnswer(t *testing.T) {
	pipeline := &fakePipeline{
		result: core.ChatResult{
			Answer: core.Answer{Text: "قیمت ۱۵ میلیون تومان است", Intent: core.IntentPriceCheck},
		},
	}
	b := testBot(pipeline, nil, "")

	reply := b.chatReply(context.Background(), 42, 7, "قیمت گوشی چقدر است؟")

	assert.Equal(t, "قیمت ۱۵ میلیون تومان است", reply)
	assert.Equal(t, "7", pipeline.lastReq.UserID)
	assert.Equal(t, "tg-42", pipeline.lastReq.SessionID)
	assert.Equal(t, "قیمت گوشی چقدر است؟", pipeline.lastReq.RawText)
}

func TestChatReplyEmptyQueryKeepsClarify(t *testing.T) {
	pipeline := &fakePipeline{
		result: core.ChatResult{
			Answer: core.Answer{Text: "لطفاً سوال خود را بنویسید", Intent: core.IntentUnknown},
		},
		err: core.ErrEmptyQuery,
	}
	b := testBot(pipeline, nil, "")

	reply := b.chatReply(context.Background(), 42, 7, "   ")

	assert.Equal(t, "لطفاً سوال خود را بنویسید", reply)
}

func TestChatReplyUnexpectedErrorFallsBack(t *testing.T) {
	pipeline := &fakePipeline{err: errors.New("transport exploded")}
	b := testBot(pipeline, nil, "")

	reply := b.chatReply(context.Background(), 42, 7, "سلام")

	assert.Equal(t, generate.FallbackText, reply)
}

func TestBulleted(t *testing.T) {
	assert.Equal(t, "• یک\n• دو", bulleted([]string{"یک", "دو"}))
	assert.Equal(t, "", bulleted(nil))
}
