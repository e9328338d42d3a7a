package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu       sync.Mutex
	messages []sendMessageRequest
	status   int
	body     string
}

func (b *botServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var msg sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		b.mu.Lock()
		b.messages = append(b.messages, msg)
		b.mu.Unlock()

		status := b.status
		if status == 0 {
			status = http.StatusOK
		}
		body := b.body
		if body == "" {
			body = `{"ok":true,"result":{}}`
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newBotServer(t *testing.T, bot *botServer) string {
	t.Helper()
	srv := httptest.NewServer(bot.handler(t))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	bot := &botServer{}
	n := NewNotifier("secret", "-100", newBotServer(t, bot)+"/")
	require.NoError(t, n.PublishDigest(context.Background(), "*digest*"))

	require.Len(t, bot.messages, 1)
	msg := bot.messages[0]
	assert.Equal(t, "-100", msg.ChatID)
	assert.Equal(t, "*digest*", msg.Text)
	assert.Equal(t, "Markdown", msg.ParseMode)
	assert.True(t, msg.DisableWebPagePreview)
}

func TestPublishDigestSplitsLongMessages(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("é", 99) + "\n"
	digest := strings.Repeat(line, 100)

	bot := &botServer{}
	n := NewNotifier("secret", "-100", newBotServer(t, bot))
	require.NoError(t, n.PublishDigest(context.Background(), digest))

	require.Len(t, bot.messages, 3)
	var joined strings.Builder
	for _, msg := range bot.messages {
		assert.LessOrEqual(t, utf8.RuneCountInString(msg.Text), maxMessageRunes)
		joined.WriteString(msg.Text + "\n")
	}
	assert.Equal(t, digest, joined.String())
}

func TestPublishDigestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bot     *botServer
		wantErr string
	}{
		{
			name:    "api description",
			bot:     &botServer{status: http.StatusBadRequest, body: `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`},
			wantErr: "telegram error 400: Bad Request: chat not found",
		},
		{
			name:    "flood control",
			bot:     &botServer{status: http.StatusTooManyRequests, body: `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":30}}`},
			wantErr: "retry after 30s",
		},
		{
			name:    "non json failure",
			bot:     &botServer{status: http.StatusBadGateway, body: "<html>bad gateway</html>"},
			wantErr: "telegram error: 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := NewNotifier("secret", "-100", newBotServer(t, tt.bot))
			assert.ErrorContains(t, n.PublishDigest(context.Background(), "x"), tt.wantErr)
		})
	}
}

func TestPublishDigestMisconfigured(t *testing.T) {
	t.Parallel()

	err := NewNotifier("", "-100", "").PublishDigest(context.Background(), "x")
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestSplitMessageCutsOversizedLine(t *testing.T) {
	t.Parallel()

	parts := splitMessage("ab\n"+strings.Repeat("x", 7), 3)
	assert.Equal(t, []string{"ab", "xxx", "xxx", "x"}, parts)
	assert.Equal(t, []string{"short"}, splitMessage("short", 3000))
}
