package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedKeepsNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := NewFeed(3)

	assert.Empty(t, f.Recent(0))

	for _, msg := range []string{"a", "b", "c", "d"} {
		f.Notify(ctx, New(Info, "", msg))
	}

	got := f.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].Message)
	assert.Equal(t, "b", got[2].Message)

	got = f.Recent(1)
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].Message)
}

func TestNewStampsNotification(t *testing.T) {
	n := New(Success, "products", "saved")
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())
	assert.Equal(t, "products", n.Table)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogNotifier(zerolog.New(&buf))

	l.Notify(context.Background(), New(Error, "orders", "remote failed"))

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"table":"orders"`)
	assert.Contains(t, buf.String(), "remote failed")
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewFeed(5), NewFeed(5)
	Multi{a, nil, b}.Notify(context.Background(), New(Info, "", "hi"))

	assert.Len(t, a.Recent(0), 1)
	assert.Len(t, b.Recent(0), 1)
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotifierFiltersLevels(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	tn := &TelegramNotifier{bot: sender, chatID: 42, log: zerolog.Nop()}

	tn.Notify(ctx, New(Success, "products", "ok"))
	tn.Notify(ctx, New(Info, "products", "fyi"))
	tn.Notify(ctx, New(Warning, "lotteries", "offline"))
	tn.Notify(ctx, New(Error, "", "boom"))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "[lotteries] offline")
	assert.Contains(t, sender.sent[1].Text, "boom")
}

func TestTelegramNotifierSwallowsSendErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("network")}
	tn := &TelegramNotifier{bot: sender, chatID: 1, log: zerolog.Nop()}

	assert.NotPanics(t, func() {
		tn.Notify(context.Background(), New(Error, "", "boom"))
	})
}

func TestTelegramNotifierWithoutChat(t *testing.T) {
	sender := &fakeSender{}
	tn := &TelegramNotifier{bot: sender, log: zerolog.Nop()}

	tn.Notify(context.Background(), New(Error, "", "boom"))
	assert.Empty(t, sender.sent)
}
