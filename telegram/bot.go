// Package telegram connects a message handler to the Telegram Bot API by long polling.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tbxark/intakebot/agent"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	tgbotapi "gopkg.in/telegram-bot-api.v4"
)

const (
	chatChanBufSize = 100
	sendChanBufSize = 1000
	pollTimeout     = 60
	chatIdleTimeout = 10 * time.Minute
)

// Handler answers one text message of a user.
type Handler interface {
	Handle(ctx context.Context, userID, text string) (agent.Reply, error)
}

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

type options struct {
	sendRate    rate.Limit
	pollTimeout int
	retryDelay  time.Duration
	chatIdle    time.Duration
}

type Option func(*options)

// WithSendRate caps outgoing messages per second across all chats.
func WithSendRate(perSecond float64) Option {
	return func(o *options) {
		o.sendRate = rate.Limit(perSecond)
	}
}

// WithPollTimeout sets the long polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *options) {
		o.pollTimeout = seconds
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		o.retryDelay = d
	}
}

// WithChatIdleTimeout sets how long a chat worker waits for a message before it exits.
func WithChatIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.chatIdle = d
	}
}

// Bot feeds each chat's messages to the handler one at a time, in arrival order.
// Different chats are handled concurrently and all replies share one rate-limited
// sender.
type Bot struct {
	api     API
	handler Handler
	limiter *rate.Limiter
	opts    options

	mu    sync.Mutex
	chats map[int64]chan tgbotapi.Update
	wg    sync.WaitGroup

	outbox chan tgbotapi.Chattable
}

// Connect authorises token against the Bot API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram: empty bot token")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	slog.Info("Authorized on telegram", "account", api.Self.UserName)
	return api, nil
}

func New(api API, handler Handler, opts ...Option) *Bot {
	o := options{
		sendRate:    30,
		pollTimeout: pollTimeout,
		retryDelay:  3 * time.Second,
		chatIdle:    chatIdleTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bot{
		api:     api,
		handler: handler,
		limiter: rate.NewLimiter(o.sendRate, 1),
		opts:    o,
		chats:   map[int64]chan tgbotapi.Update{},
		outbox:  make(chan tgbotapi.Chattable, sendChanBufSize),
	}
}

// Run polls for updates until ctx is cancelled. It returns nil on cancellation.
func (b *Bot) Run(ctx context.Context) error {
	updates := make(chan tgbotapi.Update, chatChanBufSize)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		return b.poll(ctx, updates)
	})
	g.Go(func() error {
		b.route(ctx, updates)
		return nil
	})
	g.Go(func() error {
		b.send(ctx)
		return nil
	})
	err := g.Wait()
	b.wg.Wait()
	return err
}

func (b *Bot) poll(ctx context.Context, out chan<- tgbotapi.Update) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = b.opts.pollTimeout
	for ctx.Err() == nil {
		updates, err := b.getUpdates(ctx, config)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.Warn("Failed to get updates, retrying", "delay", b.opts.retryDelay, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.opts.retryDelay):
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID < config.Offset {
				continue
			}
			config.Offset = update.UpdateID + 1
			select {
			case out <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

type pollResult struct {
	updates []tgbotapi.Update
	err     error
}

// getUpdates returns as soon as ctx is done. An abandoned request finishes in the
// background and its result is discarded.
func (b *Bot) getUpdates(ctx context.Context, config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	done := make(chan pollResult, 1)
	go func() {
		updates, err := b.api.GetUpdates(config)
		done <- pollResult{updates: updates, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.updates, r.err
	}
}

func (b *Bot) route(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer func() {
		b.mu.Lock()
		for id, ch := range b.chats {
			close(ch)
			delete(b.chats, id)
		}
		b.mu.Unlock()
	}()
	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Chat == nil || msg.From == nil || msg.Text == "" {
			continue
		}
		if !b.dispatch(ctx, msg.Chat.ID, update) {
			slog.Warn("Chat buffer is full, dropping message", "chat", msg.Chat.ID)
		}
	}
}

// dispatch queues update for its chat worker, starting one if the chat has none.
// Queueing happens under mu so a worker cannot retire between lookup and send.
func (b *Bot) dispatch(ctx context.Context, chatID int64, update tgbotapi.Update) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.chats[chatID]
	if !ok {
		ch = make(chan tgbotapi.Update, chatChanBufSize)
		b.chats[chatID] = ch
		b.wg.Add(1)
		go b.processChat(ctx, chatID, ch)
	}
	select {
	case ch <- update:
		return true
	default:
		return false
	}
}

// retire removes an idle chat worker. It refuses while updates are still queued.
func (b *Bot) retire(chatID int64, ch chan tgbotapi.Update) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chats[chatID] != ch || len(ch) > 0 {
		return false
	}
	delete(b.chats, chatID)
	return true
}

func (b *Bot) activeChats() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chats)
}

func (b *Bot) processChat(ctx context.Context, chatID int64, updates chan tgbotapi.Update) {
	defer b.wg.Done()
	idle := time.NewTimer(b.opts.chatIdle)
	defer idle.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-idle.C:
			if b.retire(chatID, updates) {
				slog.Debug("Chat worker idle, exiting", "chat", chatID)
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			if !b.handle(ctx, chatID, update) {
				return
			}
		}
		idle.Reset(b.opts.chatIdle)
	}
}

func (b *Bot) handle(ctx context.Context, chatID int64, update tgbotapi.Update) bool {
	if ctx.Err() != nil {
		return false
	}
	msg := update.Message
	userID := strconv.Itoa(msg.From.ID)
	slog.Debug("Received message", "chat", chatID, "user", userID)
	reply, err := b.handler.Handle(ctx, userID, msg.Text)
	if err != nil {
		slog.Error("Handler failed", "chat", chatID, "user", userID, "error", err)
	}
	if reply.Text == "" {
		return true
	}
	out := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	select {
	case b.outbox <- out:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *Bot) send(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-b.outbox:
			if err := b.limiter.Wait(ctx); err != nil {
				return
			}
			if _, err := b.api.Send(c); err != nil {
				slog.Error("Failed to send message", "error", err)
			}
		}
	}
}
