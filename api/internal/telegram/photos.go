package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"areca-grader/api/internal/capture"
	apperrors "areca-grader/api/internal/errors"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/progress"
)

// editEvery limits progress edits; Telegram throttles frequent edits of one message.
const editEvery = 20

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID

	f := capture.File{}
	var fileID string
	if len(msg.Photo) > 0 {
		ph := msg.Photo[len(msg.Photo)-1]
		fileID = ph.FileID
		f.Name = "photo.jpg"
		f.Size = int64(ph.FileSize)
		f.ContentType = "image/jpeg"
	} else {
		fileID = msg.Document.FileID
		f.Name = msg.Document.FileName
		f.Size = int64(msg.Document.FileSize)
		f.ContentType = msg.Document.MimeType
	}

	// reject on the declared size before downloading anything
	if f.Size > r.Capture.MaxBytes() {
		r.send(cid, apperrors.UserMessage(r.Capture.RejectTooLarge()))
		return
	}

	link, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendError(cid, "get file", err)
		return
	}
	resp, err := r.httpClient().Get(link)
	if err != nil {
		r.sendError(cid, "download", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.sendError(cid, "download", fmt.Errorf("status %d", resp.StatusCode))
		return
	}
	f.Data = resp.Body

	uri, err := r.Capture.AcceptFile(ctx, f)
	if err != nil {
		r.send(cid, apperrors.UserMessage(err))
		return
	}
	r.analyze(ctx, cid, uri)
}

// showProgress edits the status message from a simulator until the returned stop
// function is called. stop waits for the last edit to finish.
func (r *Router) showProgress(ctx context.Context, chatID int64, messageID int) (stop func()) {
	if messageID == 0 {
		return func() {}
	}
	sim := progress.New(progress.WithInterval(r.ProgressInterval))
	ticks := sim.Start(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		last := 0
		for v := range ticks {
			if v-last >= editEvery || (v == progress.Cap && last != v) {
				last = v
				r.edit(chatID, messageID, progressText(v))
			}
		}
	}()

	return func() {
		sim.Stop()
		<-done
	}
}

func (r *Router) sendError(chatID int64, op string, err error) {
	logger.WithError(err).WithField("chat_id", chatID).WithField("op", op).Error("telegram photo failed")
	r.send(chatID, "Could not read the photo. Please try again.")
}

func (r *Router) httpClient() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func isImageDocument(d *tgbotapi.Document) bool {
	return d != nil && strings.HasPrefix(strings.ToLower(d.MimeType), "image/")
}
