package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/example/lexera/internal/progression"
	"github.com/example/lexera/pkg/models"
)

// Callback data
const (
	callbackAnswerPrefix = "ans:"
	callbackSpeedPrefix  = "speed:"
	callbackPlay         = "play"
	callbackHear         = "hear"
	callbackSpeedMenu    = "speed_menu"
	callbackProgress     = "progress"
	callbackResetAsk     = "reset_ask"
	callbackResetConfirm = "reset_confirm"
	callbackCancelAction = "cancel_action"
)

// Telegram rejects callback data longer than 64 bytes. Ids up to
// maxInlineWordID bytes are sent as is, longer ones as a name-based UUID.
const (
	maxCallbackData = 64
	maxInlineWordID = 40
)

var speedChoices = []float64{0.5, 0.75, 1.0, 1.25, 1.5}

// wordToken is the short form of a word id carried in answer buttons
func wordToken(wordID string) string {
	if len(wordID) <= maxInlineWordID {
		return wordID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(wordID)).String()
}

// answerData encodes an option button; the word token keeps old buttons from
// answering a newer word
func answerData(wordID string, idx int) string {
	return fmt.Sprintf("%s%s:%d", callbackAnswerPrefix, wordToken(wordID), idx)
}

// parseAnswerData returns the word token and option index of an answer button
func parseAnswerData(data string) (token string, idx int, ok bool) {
	rest, found := strings.CutPrefix(data, callbackAnswerPrefix)
	if !found {
		return "", 0, false
	}
	sep := strings.LastIndex(rest, ":")
	if sep <= 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(rest[sep+1:])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return rest[:sep], idx, true
}

func parseSpeed(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "x")
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return rate, true
}

// answerButtons lays the options out two per row, followed by the audio controls
func answerButtons(w models.WordRecord) [][]MenuButton {
	var rows [][]MenuButton
	var row []MenuButton
	for i, opt := range w.Options {
		row = append(row, MenuButton{Text: opt, CallbackData: answerData(w.ID, i)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, []MenuButton{
		{Text: "🔊 Hear again", CallbackData: callbackHear},
		{Text: "🐢 Speed", CallbackData: callbackSpeedMenu},
	})
}

func speedButtons(current float64) [][]MenuButton {
	row := make([]MenuButton, 0, len(speedChoices))
	for _, rate := range speedChoices {
		label := formatRate(rate)
		if rate == current {
			label = "• " + label
		}
		row = append(row, MenuButton{Text: label, CallbackData: callbackSpeedPrefix + strconv.FormatFloat(rate, 'f', -1, 64)})
	}
	return [][]MenuButton{row}
}

// MainMenuButtons returns the buttons for the main menu
func MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 Play", CallbackData: callbackPlay},
			{Text: "📊 Progress", CallbackData: callbackProgress},
		},
		{
			{Text: "🔄 Start over", CallbackData: callbackResetAsk},
		},
	}
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}

func wordCaption(level models.Difficulty, score, done, total int) string {
	return fmt.Sprintf("⭐ Level: %s (%d/%d)\n🏅 Score: %d\n\nListen and pick the correct spelling.",
		level.Title(), done, total, score)
}

// eventText renders the feedback for every event except WordSelected
func eventText(ev progression.Event, reward int) string {
	switch ev.Kind {
	case progression.Correct:
		return fmt.Sprintf("✅ Correct! +%d points. Score: %d", reward, ev.Score)
	case progression.Incorrect:
		return "❌ Not quite, listen again and try once more."
	case progression.TierAdvanced:
		return fmt.Sprintf("🎉 Level up! You are now on %s words.", ev.Level.Title())
	case progression.GameCompleted:
		return fmt.Sprintf("🏆 You finished every level! Final score: %d.\nUse /reset to play again.", ev.Score)
	case progression.CatalogExhausted:
		return "There are no words left to play at your level.\nUse /reset to start over."
	}
	return ""
}

func progressText(s progression.State, done, total int) string {
	var sb strings.Builder
	sb.WriteString("📊 Your progress\n\n")
	sb.WriteString(fmt.Sprintf("Level: %s\n", s.Level.Title()))
	sb.WriteString(fmt.Sprintf("Score: %d\n", s.Score))
	sb.WriteString(fmt.Sprintf("Words completed: %d\n", len(s.WordsCompleted)))
	sb.WriteString(fmt.Sprintf("This level: %d/%d\n", done, total))
	sb.WriteString(fmt.Sprintf("Speech speed: %s", formatRate(s.SpeechRate)))
	if s.Phase == progression.PhaseCompleted {
		sb.WriteString("\n\nAll done! Use /reset to play again.")
	}
	return sb.String()
}

// sendWord presents w with its option keyboard, as a photo when it has an image
func (b *Bot) sendWord(chatID int64, w models.WordRecord, level models.Difficulty, score, done, total int) error {
	caption := wordCaption(level, score, done, total)
	keyboard := createKeyboard(answerButtons(w))
	if w.Image != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(w.Image))
		photo.Caption = caption
		photo.ReplyMarkup = keyboard
		err := b.sendMessage(photo)
		if err == nil {
			return nil
		}
		b.log.Debug("image failed, sending text", "word", w.ID, "error", err)
	}
	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ReplyMarkup = keyboard
	return b.sendMessage(msg)
}

// chatNotifier turns engine events into chat messages
type chatNotifier struct {
	bot    *Bot
	engine *progression.Engine
	chatID int64
}

func (n *chatNotifier) Notify(ev progression.Event) {
	var err error
	if ev.Kind == progression.WordSelected {
		if ev.Word == nil {
			return
		}
		done, total := 0, 0
		if n.engine != nil {
			done, total = n.engine.TierProgress()
		}
		err = n.bot.sendWord(n.chatID, *ev.Word, ev.Level, ev.Score, done, total)
	} else if text := eventText(ev, n.bot.settings.RewardPoints); text != "" {
		msg := tgbotapi.NewMessage(n.chatID, text)
		if ev.Kind.Terminal() {
			msg.ReplyMarkup = createKeyboard(MainMenuButtons())
		}
		err = n.bot.sendMessage(msg)
	}
	if err != nil {
		n.bot.log.Warn("event not delivered", "event", ev.Kind, "chat_id", n.chatID, "error", err)
	}
}

// chatPlayer sends audio files to a chat. Telegram clients control playback
// speed, so the rate is shown in the caption only.
type chatPlayer struct {
	api    API
	chatID int64
}

func (p *chatPlayer) PlayURL(ctx context.Context, audioURL string, rate float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	audio := tgbotapi.NewAudio(p.chatID, tgbotapi.FileURL(audioURL))
	if rate != progression.DefaultSpeechRate {
		audio.Caption = "🔊 " + formatRate(rate)
	}
	_, err := p.api.Send(audio)
	return err
}

// chatCue plays the configured success or failure sound
type chatCue struct {
	player       *chatPlayer
	correctURL   string
	incorrectURL string
}

func (c *chatCue) Play(ctx context.Context, correct bool) error {
	url := c.incorrectURL
	if correct {
		url = c.correctURL
	}
	if url == "" {
		return nil
	}
	return c.player.PlayURL(ctx, url, progression.DefaultSpeechRate)
}
