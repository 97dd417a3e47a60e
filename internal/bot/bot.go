package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lexera/internal/excel"
	"github.com/example/lexera/internal/logger"
	"github.com/example/lexera/internal/progression"
	"github.com/example/lexera/internal/speech"
	"github.com/example/lexera/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// API is the subset of the Telegram client the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// WordAdmin is the word storage used by admin commands
type WordAdmin interface {
	excel.WordStore
	CountByDifficulty(ctx context.Context) (map[models.Difficulty]int, error)
}

// Options wires the bot to storage
type Options struct {
	Catalog  progression.CatalogSource
	Store    progression.ProgressStore
	Words    WordAdmin
	Admins   map[int64]bool
	Settings Settings
	Log      *logger.Logger
}

// Bot represents the Telegram bot application
type Bot struct {
	api      API
	catalog  progression.CatalogSource
	store    progression.ProgressStore
	words    WordAdmin
	admins   map[int64]bool
	settings Settings
	log      *logger.Logger
	sessions *Sessions

	mu                 sync.Mutex
	awaitingFileUpload map[int64]bool
}

// New creates a new bot instance
func New(api API, opts Options) (*Bot, error) {
	if api == nil {
		return nil, fmt.Errorf("telegram api is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("word catalog is required")
	}
	if opts.Settings.TTSURLTemplate != "" {
		if _, err := speech.NewURLSynthesizer(opts.Settings.TTSURLTemplate, nil); err != nil {
			return nil, err
		}
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Admins == nil {
		opts.Admins = make(map[int64]bool)
	}

	b := &Bot{
		api:                api,
		catalog:            opts.Catalog,
		store:              opts.Store,
		words:              opts.Words,
		admins:             opts.Admins,
		settings:           opts.Settings,
		log:                opts.Log.With("component", "bot"),
		awaitingFileUpload: make(map[int64]bool),
	}
	b.sessions = NewSessions(b.newEngine, opts.Settings.SessionIdleTimeout)
	return b, nil
}

// Sessions exposes the session table, e.g. for the idle sweeper
func (b *Bot) Sessions() *Sessions {
	return b.sessions
}

// newEngine builds an unstarted engine whose output goes to chatID
func (b *Bot) newEngine(userID, chatID int64) *progression.Engine {
	log := b.log.With("user_id", userID)
	player := &chatPlayer{api: b.api, chatID: chatID}

	var synth speech.Synthesizer
	if b.settings.TTSURLTemplate != "" {
		// Template validity is checked in New.
		s, err := speech.NewURLSynthesizer(b.settings.TTSURLTemplate, player)
		if err == nil {
			synth = s
		}
	}

	notifier := &chatNotifier{bot: b, chatID: chatID}
	e := progression.New(progression.Options{
		Catalog:          b.catalog,
		Store:            b.store,
		Pronouncer:       speech.NewChain(player, synth, log),
		Cue:              &chatCue{player: player, correctURL: b.settings.CorrectSoundURL, incorrectURL: b.settings.IncorrectSoundURL},
		Notifier:         notifier,
		Log:              log,
		RewardPoints:     b.settings.RewardPoints,
		FeedbackDelay:    b.settings.FeedbackDelay,
		TierAdvanceDelay: b.settings.TierAdvanceDelay,
	})
	notifier.engine = e
	return e
}

// Start receives updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("receiving updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Stop closes every session, flushing progress, or gives up when ctx expires
func (b *Bot) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.sessions.CloseAll()
		close(done)
	}()
	select {
	case <-done:
		b.log.Info("bot stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("closing sessions: %w", ctx.Err())
	}
}

// isAdmin checks if a user is an admin
func (b *Bot) isAdmin(userID int64) bool {
	return b.admins[userID]
}

func (b *Bot) setAwaitingUpload(userID int64, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v {
		b.awaitingFileUpload[userID] = true
	} else {
		delete(b.awaitingFileUpload, userID)
	}
}

func (b *Bot) isAwaitingUpload(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaitingFileUpload[userID]
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	var err error
	switch {
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.log.Warn("update failed", "update_id", update.UpdateID, "error", err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.IsCommand() {
		return b.HandleCommand(ctx, message)
	}
	if message.Document != nil && b.isAwaitingUpload(message.From.ID) {
		return b.handleImportDocument(ctx, message)
	}
	return b.handleTypedAnswer(message)
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}
