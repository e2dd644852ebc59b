package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf16"

	"go-job-digest/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramTextLimit  = 4096
	telegramTitleRunes = 200
)

// Telegram sends the digest as MarkdownV2 messages, split to fit the
// per-message limit.
type Telegram struct {
	token    string
	chatID   int64
	endpoint string
	hc       *http.Client

	api *tgbotapi.BotAPI
}

func NewTelegram(token string, chatID int64, hc *http.Client) *Telegram {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Telegram{token: token, chatID: chatID, endpoint: tgbotapi.APIEndpoint, hc: hc}
}

func (t *Telegram) Name() string { return "telegram" }

// connect creates the bot lazily; NewBotAPI already calls getMe.
func (t *Telegram) connect() error {
	if t.api != nil {
		return nil
	}
	api, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.hc)
	if err != nil {
		return fmt.Errorf("%w: init telegram bot: %v", ErrInvalidCredentials, err)
	}

	//turn this on in case of debug
	//api.Debug = true

	t.api = api
	return nil
}

func (t *Telegram) Notify(ctx context.Context, d models.Digest) error {
	if err := t.connect(); err != nil {
		return err
	}
	for i, chunk := range TelegramMessages(d) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("%w: telegram message %d: %v", ErrDeliveryFailed, i+1, err)
		}
	}
	return nil
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
		")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
		"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
		"}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}

// inside (...) of an inline link only ) and \ need escaping
func escapeLinkURL(u string) string {
	return strings.NewReplacer("\\", "\\\\", ")", "\\)").Replace(u)
}

func jobBlock(i int, j models.ScoredJob) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 *%d\\. %s*\n", i, escapeMarkdown(truncateRunes(j.Job.Title, telegramTitleRunes)))
	if j.Job.Company != "" {
		fmt.Fprintf(&b, "🏢 %s\n", escapeMarkdown(j.Job.Company))
	}
	fmt.Fprintf(&b, "💰 %s\n", escapeMarkdown(j.Job.Salary.Label()))
	loc := j.Job.City
	if loc == "" {
		loc = "N/A"
	}
	fmt.Fprintf(&b, "📍 %s\n", escapeMarkdown(loc))
	if len(j.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, "🛠 %s\n", escapeMarkdown(strings.Join(j.MatchedKeywords, ", ")))
	}
	fmt.Fprintf(&b, "🤖 Score: %s\n", escapeMarkdown(fmt.Sprint(j.Score)))
	if j.Job.URL != "" {
		fmt.Fprintf(&b, "🔗 [View Job](%s)\n", escapeLinkURL(j.Job.URL))
	}
	return b.String()
}

// TelegramMessages renders the digest and packs it into messages of at most
// telegramTextLimit UTF-16 code units, the unit Telegram counts in, never
// splitting a job across messages.
func TelegramMessages(d models.Digest) []string {
	header := fmt.Sprintf("📋 *%s*\n✅ %s\n",
		escapeMarkdown(fmt.Sprintf("104 每日職缺 (%s)", d.Date)),
		escapeMarkdown(fmt.Sprintf("%d matching jobs out of %d candidates.", len(d.Jobs), d.TotalCandidates)),
	)

	var out []string
	cur := header
	for i, j := range d.Jobs {
		block := "\n" + jobBlock(i+1, j)
		if textLen(cur)+textLen(block) > telegramTextLimit {
			out = append(out, cur)
			cur = strings.TrimPrefix(block, "\n")
			continue
		}
		cur += block
	}
	return append(out, cur)
}

func textLen(s string) int { return len(utf16.Encode([]rune(s))) }
