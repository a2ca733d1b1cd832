package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/soundcloud-audio-bot/internal/transport"
)

type fakeSender struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	err       error
	nextID    int
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, c)
	if f.err != nil {
		return nil, f.err
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func TestSendAndEditStatus(t *testing.T) {
	api := &fakeSender{}
	tr := NewTransport(api)
	ctx := context.Background()

	handle, err := tr.SendStatus(ctx, 10, "<b>Searching</b>")
	require.NoError(t, err)
	assert.Equal(t, transport.StatusHandle{ChatID: 10, MessageID: 1}, handle)

	require.NoError(t, tr.EditStatus(ctx, handle, "<b>Downloading</b>"))

	require.Len(t, api.sent, 2)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(10), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)

	edit, ok := api.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 1, edit.MessageID)
	assert.Equal(t, "<b>Downloading</b>", edit.Text)
}

func TestEditStatusIgnoresNotModified(t *testing.T) {
	api := &fakeSender{err: errors.New("Bad Request: message is not modified")}
	tr := NewTransport(api)

	assert.NoError(t, tr.EditStatus(context.Background(), transport.StatusHandle{ChatID: 1, MessageID: 2}, "same"))

	api.err = errors.New("Bad Request: message to edit not found")
	assert.Error(t, tr.EditStatus(context.Background(), transport.StatusHandle{ChatID: 1, MessageID: 2}, "x"))
}

func TestDeliverAudio(t *testing.T) {
	api := &fakeSender{}
	tr := NewTransport(api)

	longTitle := strings.Repeat("ж", 100)
	err := tr.DeliverAudio(context.Background(), transport.Audio{
		ChatID:          5,
		Path:            "/tmp/track.m4a",
		Title:           longTitle,
		Performer:       "Artist",
		Caption:         "<i>caption</i>",
		DurationSeconds: 215,
	})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	audio, ok := api.sent[0].(tgbotapi.AudioConfig)
	require.True(t, ok)
	assert.Equal(t, int64(5), audio.ChatID)
	assert.Equal(t, tgbotapi.FilePath("/tmp/track.m4a"), audio.File)
	assert.Equal(t, 64, utf8.RuneCountInString(audio.Title))
	assert.Equal(t, "Artist", audio.Performer)
	assert.Equal(t, "<i>caption</i>", audio.Caption)
	assert.Equal(t, 215, audio.Duration)
}

func TestDeliverAudioError(t *testing.T) {
	api := &fakeSender{err: errors.New("Request Entity Too Large")}
	err := NewTransport(api).DeliverAudio(context.Background(), transport.Audio{ChatID: 1, Path: "x.mp3"})
	assert.ErrorContains(t, err, "Request Entity Too Large")
}

func TestMenus(t *testing.T) {
	api := &fakeSender{}
	tr := NewTransport(api)
	ctx := context.Background()

	keyboard := transport.Keyboard{
		{{Text: strings.Repeat("a", 80), Data: "pick:0"}},
		{{Text: "Next", Data: "page:1"}},
	}

	handle, err := tr.SendStatus(ctx, 10, "<b>Searching</b>")
	require.NoError(t, err)

	require.NoError(t, tr.EditMenu(ctx, handle, "<b>Results</b>", keyboard))
	require.NoError(t, tr.AnswerCallback(ctx, "cb-1", ""))

	require.Len(t, api.sent, 2)
	edit, ok := api.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 1, edit.MessageID)
	assert.Equal(t, "<b>Results</b>", edit.Text)
	assert.Equal(t, tgbotapi.ModeHTML, edit.ParseMode)
	require.NotNil(t, edit.ReplyMarkup)
	require.Len(t, edit.ReplyMarkup.InlineKeyboard, 2)
	assert.Equal(t, 64, utf8.RuneCountInString(edit.ReplyMarkup.InlineKeyboard[0][0].Text))
	require.NotNil(t, edit.ReplyMarkup.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "page:1", *edit.ReplyMarkup.InlineKeyboard[1][0].CallbackData)

	require.Len(t, api.requested, 1)
	answer, ok := api.requested[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", answer.CallbackQueryID)
}

func TestAnswerCallbackError(t *testing.T) {
	api := &fakeSender{err: errors.New("query is too old")}
	err := NewTransport(api).AnswerCallback(context.Background(), "cb", "")
	assert.ErrorContains(t, err, "query is too old")
}

type fakeUpdater struct {
	updates chan tgbotapi.Update
	stopped chan struct{}
	once    sync.Once
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{updates: make(chan tgbotapi.Update, 10), stopped: make(chan struct{})}
}

func (f *fakeUpdater) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeUpdater) StopReceivingUpdates() {
	f.once.Do(func() { close(f.stopped) })
}

func TestPollerDispatchesTextMessages(t *testing.T) {
	api := newFakeUpdater()
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "/search lo fi",
		Chat: &tgbotapi.Chat{ID: 100},
		From: &tgbotapi.User{ID: 7, UserName: "alice"},
	}}
	api.updates <- tgbotapi.Update{}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "panic", Chat: &tgbotapi.Chat{ID: 101}}}
	close(api.updates)

	var (
		mu       sync.Mutex
		received []transport.Message
	)
	NewPoller(api, 0).Run(context.Background(), func(ctx context.Context, msg transport.Message) {
		if msg.Text == "panic" {
			panic("handler bug")
		}
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	require.Len(t, received, 1)
	assert.Equal(t, transport.Message{ChatID: 100, UserID: 7, Username: "alice", Text: "/search lo fi"}, received[0])
}

func TestPollerDispatchesButtonPresses(t *testing.T) {
	api := newFakeUpdater()
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-9",
		Data:    "page:2",
		From:    &tgbotapi.User{ID: 7, UserName: "alice"},
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: 100}},
	}}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "inline", Data: "page:1"}}
	close(api.updates)

	var (
		mu       sync.Mutex
		received []transport.Message
	)
	NewPoller(api, 0).Run(context.Background(), func(ctx context.Context, msg transport.Message) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	require.Len(t, received, 1)
	assert.Equal(t, transport.Message{
		ChatID:     100,
		UserID:     7,
		Username:   "alice",
		CallbackID: "cb-9",
		Data:       "page:2",
		MessageID:  42,
	}, received[0])
	assert.True(t, received[0].IsCallback())
}

func TestPollerStopsOnCancel(t *testing.T) {
	api := newFakeUpdater()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewPoller(api, 0).Run(ctx, func(ctx context.Context, msg transport.Message) {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	select {
	case <-api.stopped:
	default:
		t.Fatal("StopReceivingUpdates was not called")
	}
}
