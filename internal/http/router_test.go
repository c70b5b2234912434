package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quibluff/internal/domain"
	"quibluff/internal/http/handlers"
	"quibluff/internal/questions"
	"quibluff/internal/room"
	"quibluff/internal/service"
	"quibluff/internal/ws"
)

func silentTicker(time.Duration) (<-chan time.Time, func()) {
	return make(chan time.Time), func() {}
}

type fakeBoard struct {
	entries []domain.LeaderboardEntry
	err     error
}

func (f *fakeBoard) Leaderboard(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return f.entries, f.err
}

func (f *fakeBoard) Recent(context.Context, int) ([]domain.GameSummary, error) {
	return nil, f.err
}

func newTestRouter(t *testing.T, board handlers.LeaderboardReader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub()
	reg := room.NewRegistry(hub, room.Options{NewTicker: silentTicker})
	t.Cleanup(reg.Shutdown)
	svc := service.NewGameService(reg, questions.NewResilient(nil, nil, 0), service.NewPlayerTokens("secret", time.Hour))

	return NewRouter(Deps{
		Handler: &handlers.Handler{
			Rooms:       svc,
			Leaderboard: board,
			PublicURL:   "https://play.example.com",
			Version:     "test",
		},
		WS: ws.NewHandler(hub, svc, svc, ""),
	})
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createRoom(t *testing.T, r http.Handler, nickname string) service.PlayerSession {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/rooms", "", map[string]string{"nickname": nickname, "avatarId": "🐶"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess service.PlayerSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	return sess
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t, nil)
	host := createRoom(t, r, "Dana")
	assert.Len(t, host.RoomCode, 4)
	assert.True(t, host.State.Players[0].IsHost)

	w := do(t, r, http.MethodPost, "/api/rooms/"+host.RoomCode+"/join", "", map[string]string{"nickname": "Eli"})
	require.Equal(t, http.StatusOK, w.Code)
	var guest service.PlayerSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &guest))
	assert.Len(t, guest.State.Players, 2)

	base := "/api/rooms/" + host.RoomCode

	w = do(t, r, http.MethodPost, base+"/start", host.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, base+"/settings", guest.Token, map[string]interface{}{"rounds": 3})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, base+"/settings", host.Token, map[string]interface{}{"mode": "BLUFF", "rounds": 3, "topic": "animals"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var configured struct {
		Success     bool `json:"success"`
		TotalRounds int  `json:"totalRounds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &configured))
	assert.True(t, configured.Success)
	assert.Equal(t, 3, configured.TotalRounds)

	w = do(t, r, http.MethodPost, base+"/vote", guest.Token, map[string]string{"optionId": "real"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodPost, base+"/start", host.Token, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, r, http.MethodPost, base+"/bluff", guest.Token, map[string]string{"text": "A tiny horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st domain.GameState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, domain.PhaseBluffing, st.CurrentPhase)
	assert.Equal(t, 1, st.CurrentRound)
	assert.Equal(t, "A tiny horse", st.Players[1].CurrentBluff)
}

func TestAuthErrors(t *testing.T) {
	r := newTestRouter(t, nil)
	a := createRoom(t, r, "A")
	b := createRoom(t, r, "B")

	w := do(t, r, http.MethodPost, "/api/rooms/"+a.RoomCode+"/start", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/rooms/"+a.RoomCode+"/start", "nonsense", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/rooms/"+a.RoomCode+"/start", b.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, "/api/rooms/"+a.RoomCode+"/leave", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, "/api/rooms/"+a.RoomCode+"/start", a.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "the host left and the room is gone")
}

func TestUnknownRoom(t *testing.T) {
	r := newTestRouter(t, nil)

	w := do(t, r, http.MethodPost, "/api/rooms/0000/join", "", map[string]string{"nickname": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"room not found"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/rooms/0000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/api/rooms/0000/qr", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddBotOverHTTP(t *testing.T) {
	r := newTestRouter(t, nil)
	host := createRoom(t, r, "Dana")

	w := do(t, r, http.MethodPost, "/api/rooms/"+host.RoomCode+"/bots", host.Token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var bot domain.Player
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bot))
	assert.True(t, bot.IsBot)
}

func TestRoomQR(t *testing.T) {
	r := newTestRouter(t, nil)
	host := createRoom(t, r, "Dana")

	w := do(t, r, http.MethodGet, "/api/rooms/"+host.RoomCode+"/qr", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
	assert.Equal(t, "https://play.example.com/?room=1234", handlers.JoinLink("https://play.example.com/", "1234"))
}

func TestLeaderboard(t *testing.T) {
	w := do(t, newTestRouter(t, nil), http.MethodGet, "/api/leaderboard", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	board := &fakeBoard{entries: []domain.LeaderboardEntry{{Nickname: "Dana", Wins: 3, BestScore: 4500}}}
	w = do(t, newTestRouter(t, board), http.MethodGet, "/api/leaderboard?limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"leaderboard":[{"nickname":"Dana","wins":3,"bestScore":4500}]}`, w.Body.String())

	w = do(t, newTestRouter(t, &fakeBoard{err: errors.New("db down")}), http.MethodGet, "/api/leaderboard", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, nil)

	w := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quibluff_rooms_active")
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/rooms", nil)
	req.Header.Set("Origin", "https://play.example.com")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://play.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
