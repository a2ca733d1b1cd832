// Package telegram connects the bot to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
)

const (
	maxAudioFieldRunes = 64
	maxCaptionRunes    = 1024
	maxButtonRunes     = 64
)

// sender is satisfied by *tgbotapi.BotAPI
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport sends HTML formatted status messages and audio files
type Transport struct {
	api sender
}

func NewTransport(api sender) *Transport {
	return &Transport{api: api}
}

func (t *Transport) SendStatus(ctx context.Context, chatID int64, text string) (transport.StatusHandle, error) {
	if err := ctx.Err(); err != nil {
		return transport.StatusHandle{}, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := t.api.Send(msg)
	if err != nil {
		return transport.StatusHandle{}, fmt.Errorf("failed to send status: %w", err)
	}
	return transport.StatusHandle{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (t *Transport) EditStatus(ctx context.Context, handle transport.StatusHandle, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(handle.ChatID, handle.MessageID, text)
	return t.sendEdit(edit)
}

// EditMenu replaces both the text and the keyboard of a menu
func (t *Transport) EditMenu(ctx context.Context, handle transport.StatusHandle, text string, keyboard transport.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(handle.ChatID, handle.MessageID, text, inlineMarkup(keyboard))
	return t.sendEdit(edit)
}

// AnswerCallback stops the client spinner on a pressed button; text is shown
// as a short toast when not empty
func (t *Transport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// answerCallbackQuery returns a bool, so it goes through Request
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func (t *Transport) sendEdit(edit tgbotapi.EditMessageTextConfig) error {
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true

	if _, err := t.api.Send(edit); err != nil {
		// Telegram rejects edits that do not change the text
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func inlineMarkup(keyboard transport.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(domain.Truncate(b.Text, maxButtonRunes), b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (t *Transport) DeliverAudio(ctx context.Context, audio transport.Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewAudio(audio.ChatID, tgbotapi.FilePath(audio.Path))
	cfg.Title = domain.Truncate(audio.Title, maxAudioFieldRunes)
	cfg.Performer = domain.Truncate(audio.Performer, maxAudioFieldRunes)
	cfg.Caption = domain.Truncate(audio.Caption, maxCaptionRunes)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.Duration = audio.DurationSeconds

	if _, err := t.api.Send(cfg); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

var _ transport.Menus = (*Transport)(nil)
