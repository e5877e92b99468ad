package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// VerifyTelegramAuth checks a Telegram login payload. The check key is
// SHA256(bot token); the signed message is the remaining fields as
// sorted key=value lines joined by newlines. Returns the telegram id
// on success.
func VerifyTelegramAuth(fields map[string]string, botToken string, maxAge time.Duration, now time.Time) (int64, error) {
	if botToken == "" {
		return 0, fmt.Errorf("bot token not configured")
	}
	gotHash := fields["hash"]
	if gotHash == "" {
		return 0, fmt.Errorf("hash field missing")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	message := strings.Join(lines, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(message))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(strings.ToLower(gotHash))) {
		return 0, fmt.Errorf("hash mismatch")
	}

	authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth_date invalid")
	}
	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return 0, fmt.Errorf("auth payload expired")
	}

	telegramID, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil || telegramID == 0 {
		return 0, fmt.Errorf("id invalid")
	}
	return telegramID, nil
}
