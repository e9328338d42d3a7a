package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"NewsAggregator/internal/ports"
)

const (
	defaultEndpoint = "https://api.telegram.org"
	// maxMessageRunes is the Bot API limit for one message text.
	maxMessageRunes = 4096
)

// ErrMisconfigured is returned when the bot token or chat id is missing.
var ErrMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier posts digests to one chat through the Bot API sendMessage call.
type Notifier struct {
	botToken string
	chatID   string
	endpoint string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier builds a notifier. An empty endpoint means the public Bot API.
func NewNotifier(botToken, chatID, endpoint string) *Notifier {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// PublishDigest sends digest as Markdown, split on line boundaries when it
// exceeds the message size limit. Parts are sent in order and the first
// failure stops the rest.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" {
		return ErrMisconfigured
	}

	parts := splitMessage(digest, maxMessageRunes)
	for i, part := range parts {
		if err := n.send(ctx, part); err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.endpoint, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var out apiResponse
	if jsonErr := json.Unmarshal(raw, &out); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram error: %s", resp.Status)
		}
		return fmt.Errorf("decode response: %w", jsonErr)
	}
	if !out.OK || resp.StatusCode != http.StatusOK {
		if out.Parameters.RetryAfter > 0 {
			return fmt.Errorf("telegram error %d: %s (retry after %ds)", resp.StatusCode, out.Description, out.Parameters.RetryAfter)
		}
		return fmt.Errorf("telegram error %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit runes, preferring
// line breaks. A single line longer than limit is cut mid-line.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			parts = append(parts, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if size+n > limit {
			flush()
		}
		for n > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		current.WriteString(line)
		size += n
	}
	flush()
	return parts
}
