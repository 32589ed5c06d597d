package stream

import (
	"context"
	"sync"
	"time"

	"github.com/Billerens/botmanager-be-sub004/logger"
	"github.com/Billerens/botmanager-be-sub004/metrics"
	"github.com/Billerens/botmanager-be-sub004/telegram"
	"go.uber.org/zap"
)

const DEFAULT_THROTTLE_INTERVAL = 800 * time.Millisecond

// Telegram drops the "typing" indicator after ~5s, faster than a typical
// edit interval, so the indicator runs on its own cadence.
const DEFAULT_TYPING_INTERVAL = 4500 * time.Millisecond

const cursorMarker = " ▌"

type Responder struct {
	client           telegram.Client
	throttleInterval time.Duration
	typingInterval   time.Duration
}

func NewResponder(client telegram.Client, throttleInterval time.Duration, typingInterval time.Duration) *Responder {
	if throttleInterval == 0 {
		throttleInterval = DEFAULT_THROTTLE_INTERVAL
	}
	if typingInterval == 0 {
		typingInterval = DEFAULT_TYPING_INTERVAL
	}
	return &Responder{
		client:           client,
		throttleInterval: throttleInterval,
		typingInterval:   typingInterval,
	}
}

// Respond sends a placeholder message and edits it in place as chunks arrive,
// at most one edit per throttle interval, with a cursor marker while the
// stream is incomplete. On stream failure any partial text already shown is
// finalized rather than discarded. Returns the delivered text.
func (r *Responder) Respond(ctx context.Context, token string, chatId int64, chunks <-chan string, errs <-chan error) (string, error) {
	typingCtx, stopTyping := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.typingLoop(typingCtx, token, chatId)
	}()
	defer func() {
		stopTyping()
		wg.Wait()
	}()

	messageId, err := r.client.SendMessage(ctx, token, chatId, cursorMarker, nil)
	if err != nil {
		logger.Warn("placeholder send failed, degrading to single message", zap.Error(err))
		messageId = 0
	}
	lastEdit := time.Now()

	var text string
	for chunk := range chunks {
		text += chunk
		if messageId != 0 && time.Since(lastEdit) >= r.throttleInterval {
			if err := r.client.EditMessageText(ctx, token, chatId, messageId, text+cursorMarker); err != nil {
				logger.Debug("throttled edit failed", zap.Error(err))
			} else {
				metrics.StreamEditsTotal.Inc()
			}
			lastEdit = time.Now()
		}
	}
	streamErr := <-errs

	if streamErr != nil && text == "" {
		return "", streamErr
	}
	if messageId == 0 {
		if text != "" {
			if _, err := r.client.SendMessage(ctx, token, chatId, text, nil); err != nil {
				return text, err
			}
		}
		return text, streamErr
	}
	if err := r.client.EditMessageText(ctx, token, chatId, messageId, text); err != nil {
		logger.Warn("final edit failed", zap.Error(err))
	} else {
		metrics.StreamEditsTotal.Inc()
	}
	if streamErr != nil {
		logger.Warn("stream failed, finalized with partial text", zap.Error(streamErr))
	}
	return text, nil
}

func (r *Responder) typingLoop(ctx context.Context, token string, chatId int64) {
	_ = r.client.SendChatAction(ctx, token, chatId, "typing")
	ticker := time.NewTicker(r.typingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = r.client.SendChatAction(ctx, token, chatId, "typing")
		case <-ctx.Done():
			return
		}
	}
}
