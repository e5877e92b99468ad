package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

const testBotToken = "123456:ABC-DEF1234ghIkl"

func signTelegramFields(fields map[string]string, botToken string) map[string]string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))

	signed := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		signed[k] = v
	}
	signed["hash"] = hex.EncodeToString(mac.Sum(nil))
	return signed
}

func TestVerifyTelegramAuth(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fields := signTelegramFields(map[string]string{
		"id":         "424242",
		"first_name": "Ruslan",
		"username":   "ruslan_ops",
		"auth_date":  strconv.FormatInt(now.Add(-time.Minute).Unix(), 10),
	}, testBotToken)

	id, err := VerifyTelegramAuth(fields, testBotToken, 24*time.Hour, now)
	if err != nil {
		t.Fatalf("VerifyTelegramAuth() error = %v", err)
	}
	if id != 424242 {
		t.Fatalf("VerifyTelegramAuth() id = %d, want 424242", id)
	}
}

func TestVerifyTelegramAuthTampered(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fields := signTelegramFields(map[string]string{
		"id":        "424242",
		"auth_date": strconv.FormatInt(now.Unix(), 10),
	}, testBotToken)
	fields["id"] = "999999"

	if _, err := VerifyTelegramAuth(fields, testBotToken, 24*time.Hour, now); err == nil {
		t.Fatal("expected error for tampered payload")
	}
}

func TestVerifyTelegramAuthWrongToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fields := signTelegramFields(map[string]string{
		"id":        "424242",
		"auth_date": strconv.FormatInt(now.Unix(), 10),
	}, "other-token")

	if _, err := VerifyTelegramAuth(fields, testBotToken, 24*time.Hour, now); err == nil {
		t.Fatal("expected error for wrong bot token")
	}
}

func TestVerifyTelegramAuthExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fields := signTelegramFields(map[string]string{
		"id":        "424242",
		"auth_date": strconv.FormatInt(now.Add(-48*time.Hour).Unix(), 10),
	}, testBotToken)

	if _, err := VerifyTelegramAuth(fields, testBotToken, 24*time.Hour, now); err == nil {
		t.Fatal("expected error for stale auth_date")
	}
}

func TestVerifyTelegramAuthMissingHash(t *testing.T) {
	if _, err := VerifyTelegramAuth(map[string]string{"id": "1"}, testBotToken, 0, time.Now()); err == nil {
		t.Fatal("expected error when hash is missing")
	}
}
