package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quibluff/internal/domain"
)

// отвечает за архив завершённых игр и таблицу лидеров
type GameHistoryRepository struct {
	db *pgxpool.Pool
}

func NewGameHistoryRepository(db *pgxpool.Pool) *GameHistoryRepository {
	return &GameHistoryRepository{db: db}
}

// Save сохраняет игру в архив и возвращает id строки
func (r *GameHistoryRepository) Save(ctx context.Context, s domain.GameSummary) (int64, error) {
	players, err := json.Marshal(s.Players)
	if err != nil {
		return 0, fmt.Errorf("encode players: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO game_results (room_code, mode, topic, rounds, winner_id, winner_nickname, winner_score, winner_is_bot, players, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, s.RoomCode, string(s.Mode), s.Topic, s.Rounds,
		s.Winner.ID, s.Winner.Nickname, s.Winner.Score, s.Winner.IsBot,
		players, s.FinishedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert game result: %w", err)
	}
	return id, nil
}

// Record: Save в виде хука завершения игры
func (r *GameHistoryRepository) Record(ctx context.Context, s domain.GameSummary) error {
	_, err := r.Save(ctx, s)
	return err
}

// Leaderboard: победители-люди по числу побед
func (r *GameHistoryRepository) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT winner_nickname, COUNT(*) AS wins, MAX(winner_score) AS best_score
		FROM game_results
		WHERE NOT winner_is_bot AND winner_id <> ''
		GROUP BY winner_nickname
		ORDER BY wins DESC, best_score DESC, winner_nickname
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.LeaderboardEntry])
}

// Recent: последние игры, новые первыми
func (r *GameHistoryRepository) Recent(ctx context.Context, limit int) ([]domain.GameSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_code, mode, topic, rounds, winner_id, winner_nickname, winner_score, winner_is_bot, players, finished_at
		FROM game_results
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GameSummary
	for rows.Next() {
		var (
			s       domain.GameSummary
			mode    string
			players []byte
		)
		if err := rows.Scan(&s.ID, &s.RoomCode, &mode, &s.Topic, &s.Rounds,
			&s.Winner.ID, &s.Winner.Nickname, &s.Winner.Score, &s.Winner.IsBot,
			&players, &s.FinishedAt); err != nil {
			return nil, err
		}
		s.Mode = domain.GameMode(mode)
		if err := json.Unmarshal(players, &s.Players); err != nil {
			return nil, fmt.Errorf("decode players of game %d: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
