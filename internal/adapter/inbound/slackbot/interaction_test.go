package slackbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/inbound"
)

type fakeAgent struct {
	snapshot model.MetricsSnapshot
	err      error
	rec      model.Recommendation
	recErr   error
	messages []string
}

var _ inbound.AgentPort = (*fakeAgent)(nil)

func (f *fakeAgent) Metrics(context.Context) (model.MetricsSnapshot, error) { return f.snapshot, f.err }
func (f *fakeAgent) Recommend(context.Context) (model.Recommendation, error) {
	return f.rec, f.recErr
}
func (f *fakeAgent) Chat(_ context.Context, msg string) string {
	f.messages = append(f.messages, msg)
	return "answer to " + msg
}
func (f *fakeAgent) History() []model.ChatTurn { return nil }
func (f *fakeAgent) ResetHistory()             {}

type postRecorder struct {
	mu    sync.Mutex
	posts []url.Values
}

func (p *postRecorder) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	values, _ := url.ParseQuery(string(body))
	p.mu.Lock()
	p.posts = append(p.posts, values)
	p.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true,"channel":"D123","ts":"1700000000.000100"}`))
}

func testBot(t *testing.T, agent *fakeAgent) (*Bot, *postRecorder) {
	t.Helper()
	rec := &postRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	return &Bot{
		client: slackapi.New("xoxb-test", slackapi.OptionAPIURL(srv.URL+"/")),
		agent:  agent,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, rec
}

func TestReply_RoutesToChat(t *testing.T) {
	agent := &fakeAgent{}
	bot, posts := testBot(t, agent)

	bot.reply(context.Background(), "C1", "1699999999.000001", "<@U0BOT> why is checkout warning?")

	if len(agent.messages) != 1 || agent.messages[0] != "why is checkout warning?" {
		t.Fatalf("unexpected chat messages: %v", agent.messages)
	}
	if len(posts.posts) != 1 {
		t.Fatalf("expected one post, got %d", len(posts.posts))
	}
	got := posts.posts[0]
	if got.Get("channel") != "C1" || got.Get("thread_ts") != "1699999999.000001" {
		t.Errorf("unexpected post target: %v", got)
	}
	if got.Get("text") != "answer to why is checkout warning?" {
		t.Errorf("text = %q", got.Get("text"))
	}
}

func TestReply_IgnoresBareMention(t *testing.T) {
	agent := &fakeAgent{}
	bot, posts := testBot(t, agent)

	bot.reply(context.Background(), "C1", "", "  <@U0BOT>  ")

	if len(agent.messages) != 0 || len(posts.posts) != 0 {
		t.Error("a bare mention should not reach the agent")
	}
}

func TestCommandResponse(t *testing.T) {
	snapshot := model.MetricsSnapshot{Records: []model.MetricsRecord{{
		Services: []model.ServiceMetric{{Name: "checkout"}},
	}}}

	tests := []struct {
		name       string
		agent      *fakeAgent
		text       string
		wantBlocks bool
		wantText   string
	}{
		{"status", &fakeAgent{snapshot: snapshot}, "status", true, "1 services monitored"},
		{"status uppercase", &fakeAgent{snapshot: snapshot}, "  STATUS ", true, "1 services monitored"},
		{"status error", &fakeAgent{err: errors.New("down")}, "status", false, "unavailable"},
		{"help", &fakeAgent{}, "help", false, "/serviceops recommend"},
		{"empty is help", &fakeAgent{}, "", false, "ServiceOps AI Commands"},
		{"unknown", &fakeAgent{}, "deploy `prod`", false, "Unknown command `deploy 'prod'`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, _ := testBot(t, tt.agent)
			blocks, text := bot.commandResponse(context.Background(), tt.text)
			if (len(blocks) > 0) != tt.wantBlocks {
				t.Errorf("blocks = %d, wantBlocks %v", len(blocks), tt.wantBlocks)
			}
			if !strings.Contains(text, tt.wantText) {
				t.Errorf("text = %q, want it to contain %q", text, tt.wantText)
			}
		})
	}
}

func TestRecommendBlocks(t *testing.T) {
	ok := &fakeAgent{rec: model.NewRecommendation("scale out checkout", false)}
	bot, _ := testBot(t, ok)
	blocks, text := bot.recommendBlocks(context.Background())
	if text != "scale out checkout" || len(blocks) == 0 {
		t.Errorf("unexpected recommendation reply: %q (%d blocks)", text, len(blocks))
	}

	bot, _ = testBot(t, &fakeAgent{recErr: model.ErrNoData})
	_, text = bot.recommendBlocks(context.Background())
	if text != "No metrics data available." {
		t.Errorf("no-data text = %q", text)
	}

	bot, _ = testBot(t, &fakeAgent{recErr: errors.New("boom")})
	_, text = bot.recommendBlocks(context.Background())
	if !strings.Contains(text, "Could not produce") {
		t.Errorf("error text = %q", text)
	}
}

func TestIsDirectMessage(t *testing.T) {
	tests := []struct {
		name string
		ev   slackevents.MessageEvent
		want bool
	}{
		{"dm", slackevents.MessageEvent{ChannelType: "im", User: "U1"}, true},
		{"channel", slackevents.MessageEvent{ChannelType: "channel", User: "U1"}, false},
		{"bot", slackevents.MessageEvent{ChannelType: "im", BotID: "B1"}, false},
		{"edit", slackevents.MessageEvent{ChannelType: "im", SubType: "message_changed"}, false},
	}
	for _, tt := range tests {
		if got := isDirectMessage(&tt.ev); got != tt.want {
			t.Errorf("%s: isDirectMessage = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestThreadOf(t *testing.T) {
	if threadOf("", "1.1") != "1.1" {
		t.Error("top-level mentions should start a thread on the mention")
	}
	if threadOf("0.5", "1.1") != "0.5" {
		t.Error("replies should stay in the existing thread")
	}
}
