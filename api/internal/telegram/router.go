// Package telegram is the chat front-end: a photo in, a grade out.
package telegram

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"areca-grader/api/internal/analysis"
	"areca-grader/api/internal/capture"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/render"
)

const maxMessageLen = 3900

// BotAPI is the part of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot     BotAPI
	Capture *capture.Capture
	Coord   *analysis.Coordinator

	// HTTP downloads photos; nil means a client with a 60s timeout.
	HTTP *http.Client
	// Timeout bounds one analysis; zero means 120s.
	Timeout time.Duration
	// ProgressInterval is the simulator tick; zero means the default 200ms.
	ProgressInterval time.Duration
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}
	if len(msg.Photo) > 0 || isImageDocument(msg.Document) {
		r.acceptPhoto(ctx, msg)
		return
	}
	if msg.Document != nil {
		r.send(msg.Chat.ID, "Please select a valid image file.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "Send a photo of areca nuts and I will grade it.\n"+
			"Commands: /analyze (grade the last photo again), /clear, /health")
	case "health":
		r.send(cid, "✅ OK")
	case "clear":
		r.Capture.Clear(ctx)
		r.send(cid, "Image removed.")
	case "analyze":
		uri := r.Capture.Load(ctx)
		if uri == "" {
			r.send(cid, analysis.MsgInvalidImage)
			return
		}
		r.analyze(ctx, cid, uri)
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) send(chatID int64, text string) tgbotapi.Message {
	m, err := r.Bot.Send(tgbotapi.NewMessage(chatID, truncate(text)))
	if err != nil {
		logger.WithError(err).WithField("chat_id", chatID).Warn("telegram send failed")
	}
	return m
}

func (r *Router) edit(chatID int64, messageID int, text string) {
	if _, err := r.Bot.Request(tgbotapi.NewEditMessageText(chatID, messageID, truncate(text))); err != nil {
		logger.WithError(err).WithField("chat_id", chatID).Debug("telegram edit failed")
	}
}

// analyze runs one grading call for uri, showing simulated progress in a message
// that is replaced by the result.
func (r *Router) analyze(ctx context.Context, chatID int64, uri string) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status := r.send(chatID, progressText(0))
	stop := r.showProgress(ctx, chatID, status.MessageID)

	state := r.Coord.GetAnalysis(ctx, analysis.FormState{}, url.Values{analysis.FieldPhotoDataURI: {uri}})
	stop()

	text := ""
	if state.Error != nil {
		text = *state.Error
	} else if state.Result != nil {
		text = render.Text(*state.Result)
	}
	if status.MessageID != 0 {
		r.edit(chatID, status.MessageID, text)
		return
	}
	r.send(chatID, text)
}

func truncate(s string) string {
	if len([]rune(s)) <= maxMessageLen {
		return s
	}
	return string([]rune(s)[:maxMessageLen]) + "…"
}

func progressText(v int) string {
	filled := v / 10
	return "AI is analyzing the image. This may take a moment...\n" +
		strings.Repeat("▓", filled) + strings.Repeat("░", 10-filled) + " " + render.Percent(float64(v))
}
