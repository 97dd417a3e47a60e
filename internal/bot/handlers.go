package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lexera/internal/excel"
	"github.com/example/lexera/internal/progression"
	"github.com/example/lexera/pkg/models"
)

const (
	downloadTimeout = 2 * time.Minute
	maxImportErrors = 10
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		return b.handleStart(chatID)
	case "help":
		return b.handleHelp(chatID)
	case "play":
		return b.handlePlay(ctx, userID, chatID)
	case "repeat":
		return b.handleRepeat(userID, chatID)
	case "speed":
		return b.handleSpeedCommand(userID, chatID, message.CommandArguments())
	case "progress":
		return b.handleProgress(ctx, userID, chatID)
	case "reset":
		return b.handleResetAsk(chatID)
	case "import":
		if !b.isAdmin(userID) {
			return b.sendText(chatID, "This command is only available for administrators.")
		}
		return b.handleImportCommand(userID, chatID)
	case "admin_stats":
		if !b.isAdmin(userID) {
			return b.sendText(chatID, "This command is only available for administrators.")
		}
		return b.handleAdminStats(ctx, chatID)
	default:
		msg := tgbotapi.NewMessage(chatID, "Unknown command. Use /help to see what I can do.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		return b.sendMessage(msg)
	}
}

func (b *Bot) handleStart(chatID int64) error {
	text := "👋 Welcome to Lexera!\n\n" +
		"I say a word, you pick the correct spelling.\n" +
		"Every right answer earns points, and when a level is done you move on to harder words."
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 Commands\n\n" +
		"/play - start or continue the game\n" +
		"/repeat - hear the current word again\n" +
		"/speed <0.5-1.5> - set the speech speed\n" +
		"/progress - show your level and score\n" +
		"/reset - start over from the first level\n\n" +
		"You can also type the spelling instead of pressing a button."
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

// handlePlay starts a session, or shows the current word of a running one
func (b *Bot) handlePlay(ctx context.Context, userID, chatID int64) error {
	e, created, err := b.sessions.Open(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if created {
		// Start already presented the first word or the end of the game.
		return nil
	}

	s := e.Snapshot()
	switch {
	case s.Current != nil:
		done, total := e.TierProgress()
		return b.sendWord(chatID, *s.Current, s.Level, s.Score, done, total)
	case s.Phase == progression.PhaseCompleted:
		msg := tgbotapi.NewMessage(chatID, "You have played every word. Use /reset to start over.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		return b.sendMessage(msg)
	}
	return b.sendText(chatID, "Loading your game, one moment...")
}

func (b *Bot) handleRepeat(userID, chatID int64) error {
	e, ok := b.sessions.Get(userID)
	if !ok || !e.RepeatWord() {
		return b.sendText(chatID, "There is no word to repeat. Use /play to start.")
	}
	return nil
}

func (b *Bot) handleSpeedCommand(userID, chatID int64, args string) error {
	current := progression.DefaultSpeechRate
	e, ok := b.sessions.Get(userID)
	if ok {
		current = e.SpeechRate()
	}

	rate, valid := parseSpeed(args)
	if !valid {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Speech speed is %s. Pick a new one:", formatRate(current)))
		msg.ReplyMarkup = createKeyboard(speedButtons(current))
		return b.sendMessage(msg)
	}
	if !ok {
		return b.sendText(chatID, "Use /play first, then set the speed.")
	}
	return b.sendText(chatID, "Speech speed set to "+formatRate(e.SetSpeechRate(rate)))
}

func (b *Bot) handleProgress(ctx context.Context, userID, chatID int64) error {
	e, _, err := b.sessions.Open(ctx, userID, chatID)
	if err != nil {
		return err
	}
	done, total := e.TierProgress()
	msg := tgbotapi.NewMessage(chatID, progressText(e.Snapshot(), done, total))
	msg.ReplyMarkup = createKeyboard(MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleResetAsk(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Start over? Your score and completed words will be cleared.")
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{
			{Text: "✅ Yes, start over", CallbackData: callbackResetConfirm},
			{Text: "❌ Cancel", CallbackData: callbackCancelAction},
		},
	})
	return b.sendMessage(msg)
}

// handleTypedAnswer treats plain text as an answer for the current word
func (b *Bot) handleTypedAnswer(message *tgbotapi.Message) error {
	e, ok := b.sessions.Get(message.From.ID)
	if !ok || message.Text == "" {
		msg := tgbotapi.NewMessage(message.Chat.ID, "I don't understand. Use /play to start a game.")
		msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		return b.sendMessage(msg)
	}
	if e.SubmitAnswer(message.Text) == progression.Ignored {
		return b.sendText(message.Chat.ID, "Wait for the next word, please.")
	}
	return nil
}

// HandleCallback handles callback queries from buttons
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.From == nil || callback.Message.Chat == nil {
		return fmt.Errorf("invalid callback data: Message or From is nil")
	}
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	data := callback.Data

	var notice string
	var err error
	switch {
	case strings.HasPrefix(data, callbackAnswerPrefix):
		notice = b.handleAnswerCallback(userID, data)
	case strings.HasPrefix(data, callbackSpeedPrefix):
		notice = b.handleSpeedCallback(userID, strings.TrimPrefix(data, callbackSpeedPrefix))
	case data == callbackHear:
		if e, ok := b.sessions.Get(userID); !ok || !e.RepeatWord() {
			notice = "No word to repeat"
		}
	case data == callbackSpeedMenu:
		err = b.handleSpeedCommand(userID, chatID, "")
	case data == callbackPlay:
		err = b.handlePlay(ctx, userID, chatID)
	case data == callbackProgress:
		err = b.handleProgress(ctx, userID, chatID)
	case data == callbackResetAsk:
		err = b.handleResetAsk(chatID)
	case data == callbackResetConfirm:
		err = b.handleResetConfirm(ctx, userID, chatID)
	case data == callbackCancelAction:
		b.setAwaitingUpload(userID, false)
		notice = "Cancelled"
	default:
		notice = "Unknown action"
	}

	if _, reqErr := b.api.Request(tgbotapi.NewCallback(callback.ID, notice)); reqErr != nil {
		b.log.Debug("callback answer failed", "error", reqErr)
	}
	return err
}

func (b *Bot) handleAnswerCallback(userID int64, data string) string {
	token, idx, ok := parseAnswerData(data)
	if !ok {
		return "Unknown action"
	}
	e, ok := b.sessions.Get(userID)
	if !ok {
		return "This game has ended. Use /play to start again."
	}
	wordID := token
	if cur := e.Snapshot().Current; cur != nil && wordToken(cur.ID) == token {
		wordID = cur.ID
	}
	if e.AnswerOption(wordID, idx) == progression.Ignored {
		return "That word is no longer active"
	}
	return ""
}

func (b *Bot) handleSpeedCallback(userID int64, raw string) string {
	rate, ok := parseSpeed(raw)
	if !ok {
		return "Unknown speed"
	}
	e, ok := b.sessions.Get(userID)
	if !ok {
		return "Use /play first"
	}
	return "Speed " + formatRate(e.SetSpeechRate(rate))
}

// handleResetConfirm clears progress. A live session resets in place; without
// one the stored progress is overwritten first so the new session shows a
// single fresh word.
func (b *Bot) handleResetConfirm(ctx context.Context, userID, chatID int64) error {
	if e, ok := b.sessions.Get(userID); ok {
		if err := b.sendText(chatID, "🔄 Progress cleared. Here we go again!"); err != nil {
			return err
		}
		e.ResetProgress()
		return nil
	}

	if b.store != nil {
		defaults := models.NewProgressState()
		defaults.LastUpdated = time.Now()
		if err := b.store.Upsert(ctx, Identity(userID), defaults); err != nil {
			b.log.Warn("reset progress failed", "user_id", userID, "error", err)
			return b.sendText(chatID, "⚠️ Could not clear your progress right now. Please try again later.")
		}
	}
	if err := b.sendText(chatID, "🔄 Progress cleared. Here we go again!"); err != nil {
		return err
	}
	_, _, err := b.sessions.Open(ctx, userID, chatID)
	return err
}

func (b *Bot) handleImportCommand(userID, chatID int64) error {
	if b.words == nil {
		return b.sendText(chatID, "Word storage is not configured.")
	}
	b.setAwaitingUpload(userID, true)
	msg := tgbotapi.NewMessage(chatID, "Send an .xlsx or .csv file with the columns:\n"+
		"id, word, options, image, sound, difficulty\n\n"+
		"Options are separated by | or commas. Difficulty is easy, medium, hard or expert.")
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "❌ Cancel", CallbackData: callbackCancelAction}},
	})
	return b.sendMessage(msg)
}

// handleImportDocument downloads the uploaded sheet and imports its words
func (b *Bot) handleImportDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	doc := message.Document
	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		return b.sendText(chatID, "Please send an .xlsx or .csv file.")
	}
	b.setAwaitingUpload(message.From.ID, false)

	fileURL, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		b.sendText(chatID, "❌ Could not get the file from Telegram.")
		return fmt.Errorf("get file url: %w", err)
	}
	path, err := download(ctx, fileURL, ext)
	if err != nil {
		b.sendText(chatID, "❌ Could not download the file.")
		return err
	}
	defer os.Remove(path)

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = path
	result, err := excel.ImportWords(ctx, b.words, cfg)
	if err != nil {
		b.sendText(chatID, "❌ Import failed: "+err.Error())
		return err
	}
	b.log.Info("words imported", "file", doc.FileName, "created", result.Created, "updated", result.Updated, "errors", len(result.Errors))
	return b.sendText(chatID, importSummary(result))
}

func importSummary(result *excel.ImportResult) string {
	var sb strings.Builder
	sb.WriteString("📥 Import finished\n\n")
	sb.WriteString(fmt.Sprintf("Rows processed: %d\n", result.TotalProcessed))
	sb.WriteString(fmt.Sprintf("Created: %d\n", result.Created))
	sb.WriteString(fmt.Sprintf("Updated: %d\n", result.Updated))
	sb.WriteString(fmt.Sprintf("Skipped: %d\n", result.Skipped))
	if len(result.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\nErrors (%d):\n", len(result.Errors)))
		for i, e := range result.Errors {
			if i == maxImportErrors {
				sb.WriteString(fmt.Sprintf("...and %d more\n", len(result.Errors)-maxImportErrors))
				break
			}
			sb.WriteString(e + "\n")
		}
	}
	return sb.String()
}

// download saves url to a temporary file with the given extension
func download(ctx context.Context, url, ext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "lexera-import-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("save file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("save file: %w", err)
	}
	return f.Name(), nil
}

func (b *Bot) handleAdminStats(ctx context.Context, chatID int64) error {
	var sb strings.Builder
	sb.WriteString("System Statistics\n\n")
	if b.words != nil {
		counts, err := b.words.CountByDifficulty(ctx)
		if err != nil {
			return fmt.Errorf("count words: %w", err)
		}
		total := 0
		for _, d := range models.Tiers() {
			sb.WriteString(fmt.Sprintf("%s words: %d\n", d.Title(), counts[d]))
			total += counts[d]
		}
		sb.WriteString(fmt.Sprintf("Total words: %d\n", total))
	}
	sb.WriteString(fmt.Sprintf("Active sessions: %d\n", b.sessions.Len()))
	sb.WriteString(fmt.Sprintf("Server time: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	return b.sendText(chatID, sb.String())
}
