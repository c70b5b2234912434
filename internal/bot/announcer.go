package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quibluff/internal/domain"
	"quibluff/internal/logger"
)

// sender: часть *tgbotapi.BotAPI, через которую уходят сообщения
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// LeaderboardReader отдаёт данные для /top, может быть nil
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// Announcer публикует итоги игр в заданные чаты и отвечает на /top
type Announcer struct {
	api     *tgbotapi.BotAPI
	send    sender
	chatIDs []int64
	board   LeaderboardReader
	stopCh  chan struct{}
	wg      sync.WaitGroup
	log     *slog.Logger
}

// NewAnnouncer создаёт бота для объявлений о победителях
func NewAnnouncer(token string, chatIDs []int64, board LeaderboardReader) (*Announcer, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	a := newAnnouncer(api, chatIDs, board)
	a.api = api
	a.log.Info("announcer bot authorized", "username", api.Self.UserName, "chats", len(chatIDs))
	return a, nil
}

func newAnnouncer(s sender, chatIDs []int64, board LeaderboardReader) *Announcer {
	return &Announcer{
		send:    s,
		chatIDs: chatIDs,
		board:   board,
		stopCh:  make(chan struct{}),
		log:     logger.With("component", "announcer"),
	}
}

// FormatWinner собирает текст объявления о завершённой игре
func FormatWinner(s domain.GameSummary) string {
	players := append([]domain.Player(nil), s.Players...)
	sort.SliceStable(players, func(i, j int) bool { return players[i].Score > players[j].Score })

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 <b>%s</b> wins room %s with %d points!\n", html.EscapeString(s.Winner.Nickname), s.RoomCode, s.Winner.Score)
	if s.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s · %d rounds · %s\n", html.EscapeString(s.Topic), s.Rounds, strings.ToLower(string(s.Mode)))
	}
	for i, p := range players {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, html.EscapeString(p.Nickname), p.Score)
	}
	return b.String()
}

// Announce вызывается по завершении игры. Игры без победителя не объявляются
func (a *Announcer) Announce(ctx context.Context, s domain.GameSummary) error {
	if s.Winner.ID == "" {
		return nil
	}
	text := FormatWinner(s)

	var errs []error
	for _, chatID := range a.chatIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := a.send.Send(msg); err != nil {
			a.log.Error("failed to announce winner", "chat_id", chatID, "error", err)
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// ответ на /top
func FormatLeaderboard(entries []domain.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "No finished games yet."
	}
	var b strings.Builder
	b.WriteString("<b>Top players</b>\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s: %d wins (best %d)", i+1, html.EscapeString(e.Nickname), e.Wins, e.BestScore)
	}
	return b.String()
}

func (a *Announcer) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := a.send.Send(msg); err != nil {
		a.log.Error("failed to reply", "chat_id", chatID, "error", err)
	}
}

func (a *Announcer) handleCommand(ctx context.Context, chatID int64, command string) {
	switch command {
	case "top":
		if a.board == nil {
			a.reply(chatID, "Leaderboard is disabled.")
			return
		}
		top, err := a.board.Leaderboard(ctx, 10)
		if err != nil {
			a.log.Error("leaderboard query failed", "error", err)
			a.reply(chatID, "Leaderboard is unavailable right now.")
			return
		}
		a.reply(chatID, FormatLeaderboard(top))
	case "start", "help":
		a.reply(chatID, "I announce quibluff winners here.\n/top - best players")
	}
}

// Start слушает команды до вызова Stop
func (a *Announcer) Start() {
	if a.api == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)
	a.log.Info("starting bot update loop")

	for {
		select {
		case <-a.stopCh:
			a.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			a.wg.Add(1)
			go func(chatID int64, command string) {
				defer a.wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				a.handleCommand(ctx, chatID, command)
			}(update.Message.Chat.ID, update.Message.Command())
		}
	}
}

func (a *Announcer) Stop() {
	a.log.Info("stopping announcer bot...")
	close(a.stopCh)
	if a.api != nil {
		a.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.log.Info("announcer bot stopped gracefully")
	case <-time.After(10 * time.Second):
		a.log.Warn("announcer shutdown timeout, some handlers may not have completed")
	}
}
