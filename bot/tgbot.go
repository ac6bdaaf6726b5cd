package bot

import (
	"context"
	"fmt"
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"log/slog"
	"prism/entity"
	"prism/internal/lib/sl"
	"strings"
	"time"
)

const sendTimeout = 10 * time.Second

// TgBot posts staff alerts and error logs to the admin chat.
type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	updater     *ext.Updater
	botUsername string
	adminId     int64
	send        func(chatId int64, text, parseMode string, timeout time.Duration) error
}

func NewTgBot(botName, apiKey string, adminId int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminId:     adminId,
		botUsername: botName,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api
	tgBot.send = tgBot.apiSend

	return tgBot, nil
}

// Start polls for updates and answers /start with the chat id to put in admin_id.
// It blocks until Stop is called.
func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Warn("handling update", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	dispatcher.AddHandler(handlers.NewCommand("start", t.onStart))

	t.updater = ext.NewUpdater(dispatcher, nil)
	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("start polling: %w", err)
	}
	t.log.Info("polling", slog.String("bot", t.botUsername))

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		_ = t.updater.Stop()
	}
}

func (t *TgBot) onStart(b *tgbotapi.Bot, ctx *ext.Context) error {
	text := fmt.Sprintf("PRISM alerts bot. This chat id is %d.", ctx.EffectiveChat.Id)
	_, err := ctx.EffectiveMessage.Reply(b, text, nil)
	return err
}

// SendMessage posts a plain text message to the admin chat.
func (t *TgBot) SendMessage(msg string) {
	t.plainResponse(t.adminId, msg, sendTimeout)
}

func (t *TgBot) Name() string {
	return "telegram"
}

// Deliver posts staff alerts for escalated chats and new restore requests.
// Other event types are ignored.
func (t *TgBot) Deliver(ctx context.Context, env entity.Envelope) error {
	text := alertText(env.Event)
	if text == "" {
		return nil
	}

	timeout := sendTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := t.send(t.adminId, escape(text), "MarkdownV2", timeout); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}

func alertText(e entity.Event) string {
	switch e.Type {
	case entity.EventChatEscalated:
		var b strings.Builder
		b.WriteString("Chat escalated\n")
		fmt.Fprintf(&b, "agency: %s\nopportunity: %s\nclient: %s\nthread: %s", e.AgencyID, e.OpportunityID, e.ClientID, e.ThreadID)
		if e.Message != nil {
			if reason, ok := e.Message.Metadata["reason"].(string); ok {
				fmt.Fprintf(&b, "\nreason: %s", reason)
			}
		}
		return b.String()
	case entity.EventRestoreRequest:
		return fmt.Sprintf("Restore requested\nagency: %s\nopportunity: %s\nclient: %s\nrequest: %s",
			e.AgencyID, e.OpportunityID, e.ClientID, e.RequestID)
	}
	return ""
}

func (t *TgBot) apiSend(chatId int64, text, parseMode string, timeout time.Duration) error {
	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode:   parseMode,
		RequestOpts: &tgbotapi.RequestOpts{Timeout: timeout},
	})
	return err
}

func (t *TgBot) plainResponse(chatId int64, text string, timeout time.Duration) {
	text = strings.ReplaceAll(text, "**", "*")
	sanitized := escape(text)

	if sanitized == "" {
		t.log.With(
			slog.Int64("id", chatId),
		).Debug("empty message")
		return
	}

	// logging here must not re-enter the telegram log handler
	if err := t.send(chatId, sanitized, "MarkdownV2", timeout); err != nil {
		if err = t.send(chatId, text, "", timeout); err != nil {
			fmt.Printf("telegram: sending message to %d: %v\n", chatId, err)
		}
	}
}

// escape backslash-escapes MarkdownV2 reserved characters.
func escape(input string) string {
	const reservedChars = "\\`_*[]{}#+-.!|()~>="

	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
