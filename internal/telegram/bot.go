package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"assistant-bot/internal/assistant"
	"assistant-bot/internal/session"
)

const (
	apologyReply = "Sorry, I encountered an error while processing your message."
	emptyReply   = "I'm sorry, I couldn't process your request."
)

// sender is the slice of tgbotapi.BotAPI the bot uses; factored out so
// tests can capture outgoing traffic.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bridge relays inbound user text to the assistant.
type Bridge interface {
	HandleInbound(ctx context.Context, key, displayNameHint, text string) (string, error)
	StartSession(ctx context.Context, key, displayNameHint string) (session.Session, error)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	s      sender
	bridge Bridge
}

func New(botToken string, bridge Bridge) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api, s: api, bridge: bridge}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Printf("telegram bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
			}
		}
	}
}

func sessionKey(chatID int64) string { return fmt.Sprintf("tg:%d", chatID) }

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID
	firstName := "User"
	if msg.From != nil && msg.From.FirstName != "" {
		firstName = msg.From.FirstName
	}

	if strings.HasPrefix(msg.Text, "/") {
		if msg.Text == "/start" || strings.HasPrefix(msg.Text, "/start ") {
			b.handleStart(ctx, chatID, firstName)
		}
		return
	}

	b.sendTyping(chatID)

	reply, err := b.bridge.HandleInbound(ctx, sessionKey(chatID), firstName, msg.Text)
	if errors.Is(err, assistant.ErrNoReply) {
		// The engine declined to answer; that is not an error condition.
		log.Printf("no reply for chat %d", chatID)
		b.sendMessage(chatID, emptyReply)
		return
	}
	if err != nil {
		log.Printf("failed to handle message from chat %d: %v", chatID, err)
		b.sendMessage(chatID, apologyReply)
		return
	}
	b.sendMessage(chatID, reply)
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, firstName string) {
	log.Printf("new telegram session from %s (%d)", firstName, chatID)
	if _, err := b.bridge.StartSession(ctx, sessionKey(chatID), firstName); err != nil {
		log.Printf("failed to start session for chat %d: %v", chatID, err)
		b.sendMessage(chatID, apologyReply)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("👋 Hello %s! I'm your AI assistant. How can I help you today?", firstName))
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("failed to send typing action: %v", err)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}
