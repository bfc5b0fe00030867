package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/simple-mercari/listing/internal/listing"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot turns chat messages into listing form events. Each user gets their
// own form.
type Bot struct {
	tg         BotAPI
	poster     listing.Poster
	state      BotState
	downloader *ImageDownloader
}

func NewBot(tg BotAPI, poster listing.Poster) *Bot {
	bot := &Bot{
		tg:         tg,
		poster:     poster,
		downloader: NewImageDownloader(),
	}
	bot.state = bot.NewBotState()
	return bot
}

// HandleUpdate dispatches an update to the sender's session worker.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to
// complete. Used in tests.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}

	session := b.state.getUserSession(message.From.ID)
	log.Info().Str("text", message.Text).Str("caption", message.Caption).Msg("got message")

	msg := SessionMessage{Type: "text", Ctx: ctx, Message: message}
	if len(message.Photo) > 0 {
		msg.Type = "photo"
	}

	if sync {
		session.SendSync(msg)
	} else {
		session.Send(msg)
	}
}

// Shutdown stops every session and waits for in-flight submissions.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleSessionMessage implements MessageHandler. It runs on the session
// worker goroutine.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "photo":
		b.handlePhotoMessage(ctx, session, msg.Message)
	case "text":
		b.handleCommand(session, msg.Message.Text)
	}
}

// handlePhotoMessage downloads the largest size of the photo and selects
// it as the listing image.
func (b *Bot) handlePhotoMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	photo := message.Photo[len(message.Photo)-1]
	img, err := b.downloader.DownloadFromTelegramFileID(ctx, b.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		log.Error().Err(err).Str("fileID", photo.FileID).Msg("failed to download photo")
		session.reply(MsgPhotoDownloadFailed)
		return
	}

	session.form.SelectImage([]listing.Image{{
		Filename:    fmt.Sprintf("%s.jpg", photo.FileUniqueID),
		ContentType: img.ContentType,
		Data:        img.Data,
	}})

	if message.Caption != "" {
		session.form.Change(listing.FieldName, message.Caption)
	}
	session.replyDraft()
}

func (b *Bot) handleCommand(session *UserSession, text string) {
	command, arg := parseCommand(text)
	switch command {
	case "/start", "/help":
		session.reply(MsgStartPrompt)
	case "/name":
		session.form.Change(listing.FieldName, arg)
		session.replyDraft()
	case "/category":
		session.form.Change(listing.FieldCategory, arg)
		session.replyDraft()
	case "/show":
		session.replyDraft()
	case "/list":
		// The outcome only reaches the log.
		session.form.SubmitAsync()
	default:
		session.reply(MsgUnknownCommand)
	}
}
