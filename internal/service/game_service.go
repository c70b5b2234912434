package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quibluff/internal/domain"
	"quibluff/internal/logger"
	"quibluff/internal/questions"
	"quibluff/internal/room"
)

// PlayerSession выдаётся после create/join: токен авторизует
// все следующие команды и push-соединение
type PlayerSession struct {
	RoomCode string           `json:"roomCode"`
	PlayerID string           `json:"playerId"`
	Token    string           `json:"token"`
	State    domain.GameState `json:"state"`
}

// GameService между транспортами и реестром комнат: выдаёт токены,
// проверяет права хоста и готовит вопросы
type GameService struct {
	rooms     *room.Registry
	questions questions.Provider
	tokens    *PlayerTokens
	log       *slog.Logger
}

func NewGameService(rooms *room.Registry, provider questions.Provider, tokens *PlayerTokens) *GameService {
	return &GameService{
		rooms:     rooms,
		questions: provider,
		tokens:    tokens,
		log:       logger.With("component", "game_service"),
	}
}

func (s *GameService) CreateRoom(ctx context.Context, nickname, avatarID string) (PlayerSession, error) {
	j := s.rooms.CreateRoom(nickname, avatarID)
	return s.session(j)
}

func (s *GameService) JoinRoom(ctx context.Context, code, nickname, avatarID string) (PlayerSession, error) {
	j, err := s.rooms.JoinRoom(code, nickname, avatarID)
	if err != nil {
		return PlayerSession{}, err
	}
	return s.session(j)
}

func (s *GameService) session(j room.Joined) (PlayerSession, error) {
	token, err := s.tokens.Issue(j.RoomCode, j.PlayerID)
	if err != nil {
		return PlayerSession{}, fmt.Errorf("issue token: %w", err)
	}
	return PlayerSession{RoomCode: j.RoomCode, PlayerID: j.PlayerID, Token: token, State: j.State}, nil
}

// Authenticate разбирает токен и проверяет, что игрок ещё в комнате
func (s *GameService) Authenticate(token string) (PlayerClaims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return PlayerClaims{}, err
	}
	if _, err := s.rooms.Player(claims.Room, claims.PlayerID()); err != nil {
		return PlayerClaims{}, err
	}
	return claims, nil
}

func (s *GameService) requireHost(code, playerID string) error {
	p, err := s.rooms.Player(code, playerID)
	if err != nil {
		return err
	}
	if !p.IsHost {
		return domain.ErrNotHost
	}
	return nil
}

func normalizeSettings(in domain.Settings) domain.Settings {
	def := domain.DefaultSettings()
	out := in
	if !out.Mode.Valid() {
		out.Mode = def.Mode
	}
	out.Rounds = questions.ClampCount(out.Rounds)
	if out.Time <= 0 {
		out.Time = def.Time
	}
	out.Topic = strings.TrimSpace(out.Topic)
	if out.Topic == "" {
		out.Topic = def.Topic
	}
	return out
}

// ConfigureRoom готовит вопросы под настройки и отдаёт их комнате.
// Возвращает число раундов, которые реально будут сыграны
func (s *GameService) ConfigureRoom(ctx context.Context, code, playerID string, settings domain.Settings) (int, error) {
	if err := s.requireHost(code, playerID); err != nil {
		return 0, err
	}
	st, err := s.rooms.Snapshot(code)
	if err != nil {
		return 0, err
	}
	if st.InRound() {
		return 0, fmt.Errorf("%w: game in progress", domain.ErrInvalidCommand)
	}

	settings = normalizeSettings(settings)
	qs, err := s.questions.Generate(ctx, settings.Topic, settings.Rounds, settings.Mode)
	if err != nil {
		return 0, fmt.Errorf("prepare questions: %w", err)
	}
	if err := s.rooms.ConfigureRoom(code, settings, qs); err != nil {
		return 0, err
	}
	s.log.Info("questions prepared", "room", code, "topic", settings.Topic, "requested", settings.Rounds, "got", len(qs))
	return len(qs), nil
}

func (s *GameService) StartGame(ctx context.Context, code, playerID string) error {
	if err := s.requireHost(code, playerID); err != nil {
		return err
	}
	return s.rooms.StartGame(code)
}

func (s *GameService) AddBot(ctx context.Context, code, playerID string) (domain.Player, error) {
	if err := s.requireHost(code, playerID); err != nil {
		return domain.Player{}, err
	}
	return s.rooms.AddBot(code)
}

func (s *GameService) SubmitBluff(ctx context.Context, code, playerID, text string) error {
	return s.rooms.SubmitBluff(code, playerID, text)
}

func (s *GameService) SubmitVote(ctx context.Context, code, playerID, optionID string) error {
	return s.rooms.SubmitVote(code, playerID, optionID)
}

func (s *GameService) LeaveRoom(ctx context.Context, code, playerID string) error {
	return s.rooms.LeaveRoom(code, playerID)
}

func (s *GameService) State(code string) (domain.GameState, error) {
	return s.rooms.Snapshot(code)
}

func (s *GameService) Exists(code string) bool {
	return s.rooms.Exists(code)
}
