package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// создает валидную строку init_data тем же алгоритмом, что и Telegram
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	var parts []string
	for k, v := range fields {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)

	key := hmac.New(sha256.New, []byte("WebAppData"))
	key.Write([]byte(botToken))
	h := hmac.New(sha256.New, key.Sum(nil))
	h.Write([]byte(strings.Join(parts, "\n")))

	vals := url.Values{}
	for k, v := range fields {
		vals.Add(k, v)
	}
	vals.Add("hash", hex.EncodeToString(h.Sum(nil)))
	return vals.Encode()
}

func freshFields() map[string]string {
	return map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":1,"username":"u","first_name":"F"}`,
	}
}

func TestValidateTelegramInitData_Valid(t *testing.T) {
	initData := buildInitData(t, "test-bot-token", freshFields())

	vals, ok := ValidateTelegramInitData(initData, "test-bot-token")
	require.True(t, ok)
	assert.NotEmpty(t, vals.Get("user"))
}

func TestValidateTelegramInitData_Tampered(t *testing.T) {
	initData := buildInitData(t, "test-bot-token", freshFields())

	_, ok := ValidateTelegramInitData(initData+"&x=1", "test-bot-token")
	assert.False(t, ok)

	_, ok = ValidateTelegramInitData(initData, "other-token")
	assert.False(t, ok)
}

func TestValidateTelegramInitData_Stale(t *testing.T) {
	fields := freshFields()
	fields["auth_date"] = strconv.FormatInt(time.Now().Add(-2*time.Hour).Unix(), 10)

	_, ok := ValidateTelegramInitData(buildInitData(t, "tok", fields), "tok")
	assert.False(t, ok)
}

func TestTelegramNickname(t *testing.T) {
	name, ok := TelegramNickname(buildInitData(t, "tok", freshFields()), "tok")
	require.True(t, ok)
	assert.Equal(t, "F", name)

	fields := freshFields()
	fields["user"] = `{"id":2,"username":"only_user"}`
	name, ok = TelegramNickname(buildInitData(t, "tok", fields), "tok")
	require.True(t, ok)
	assert.Equal(t, "only_user", name)

	_, ok = TelegramNickname(buildInitData(t, "tok", freshFields()), "")
	assert.False(t, ok)
}
