package telegram

import (
	"context"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
)

const pollTimeoutSeconds = 60

// updater is satisfied by *tgbotapi.BotAPI
type updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller long-polls for updates and runs the handler for each text message
// or button press in its own goroutine
type Poller struct {
	api     updater
	timeout int
}

// NewPoller creates a poller; timeout is the long-poll wait in seconds
func NewPoller(api updater, timeout int) *Poller {
	if timeout <= 0 {
		timeout = pollTimeoutSeconds
	}
	return &Poller{api: api, timeout: timeout}
}

// Run blocks until ctx is done or the update channel closes, then waits for
// in-flight handlers.
func (p *Poller) Run(ctx context.Context, handler transport.Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	updates := p.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping update polling")
			p.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg, ok := toMessage(update)
			if !ok {
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						slog.Error("Message handler panicked", "chat", msg.ChatID, "panic", r)
					}
				}()
				handler(ctx, msg)
			}()
		}
	}
}

func toMessage(update tgbotapi.Update) (transport.Message, bool) {
	if q := update.CallbackQuery; q != nil {
		return callbackMessage(q)
	}

	m := update.Message
	if m == nil || m.Chat == nil || m.Text == "" {
		return transport.Message{}, false
	}

	msg := transport.Message{
		ChatID: m.Chat.ID,
		Text:   m.Text,
	}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.Username = m.From.UserName
	}
	return msg, true
}

// callbackMessage maps a button press; presses on inline-mode messages have no
// chat and are dropped
func callbackMessage(q *tgbotapi.CallbackQuery) (transport.Message, bool) {
	if q.ID == "" || q.Message == nil || q.Message.Chat == nil {
		return transport.Message{}, false
	}

	msg := transport.Message{
		ChatID:     q.Message.Chat.ID,
		CallbackID: q.ID,
		Data:       q.Data,
		MessageID:  q.Message.MessageID,
	}
	if q.From != nil {
		msg.UserID = q.From.ID
		msg.Username = q.From.UserName
	}
	return msg, true
}
