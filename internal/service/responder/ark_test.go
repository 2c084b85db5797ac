package responder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
)

type fakeGenerator struct {
	input []*schema.Message
	reply string
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func TestArkReplyBuildsPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "sure thing"}
	responder := NewArkResponder(gen, ArkOptions{SystemPrompt: "be brief", HistoryLimit: 4})

	history := []chat.Message{
		{Sender: chat.SenderUser, Content: "hi"},
		{Sender: chat.SenderBot, Content: "hello"},
	}
	reply, err := responder.Reply(context.Background(), ReplyRequest{SessionID: "s1", Message: "help me", History: history})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if reply.Text != "sure thing" || reply.Source != SourceArk {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	if len(gen.input) != 4 {
		t.Fatalf("expected 4 prompt messages, got %d", len(gen.input))
	}
	wantRoles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.User}
	for i, role := range wantRoles {
		if gen.input[i].Role != role {
			t.Fatalf("message %d role = %s, want %s", i, gen.input[i].Role, role)
		}
	}
	if gen.input[3].Content != "help me" {
		t.Fatalf("last prompt message = %q", gen.input[3].Content)
	}
}

func TestArkReplyEmptyContentFallsBack(t *testing.T) {
	responder := NewArkResponder(&fakeGenerator{reply: "  "}, ArkOptions{})

	reply, err := responder.Reply(context.Background(), ReplyRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if reply.Text != FallbackReply {
		t.Fatalf("expected fallback, got %q", reply.Text)
	}
}

func TestArkReplyError(t *testing.T) {
	responder := NewArkResponder(&fakeGenerator{err: errors.New("quota")}, ArkOptions{})

	if _, err := responder.Reply(context.Background(), ReplyRequest{Message: "hello"}); err == nil {
		t.Fatal("expected generation error")
	}
}

func TestTrimHistory(t *testing.T) {
	history := []chat.Message{
		{Content: "one two three"},
		{Content: "four five"},
		{Content: "six"},
		{Content: "seven eight"},
	}
	words := func(text string) int { return len(strings.Fields(text)) }

	if got := TrimHistory(history, 3, 0, nil); len(got) != 3 || got[0].Content != "four five" {
		t.Fatalf("limit trim unexpected: %+v", got)
	}

	got := TrimHistory(history, 10, 3, words)
	if len(got) != 2 || got[0].Content != "six" {
		t.Fatalf("budget trim unexpected: %+v", got)
	}

	if got := TrimHistory(history, 10, 1, words); len(got) != 0 {
		t.Fatalf("expected everything trimmed, got %+v", got)
	}
}
