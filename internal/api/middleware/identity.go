package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderUserID は JWT を使わない構成で利用者を識別するヘッダー
	HeaderUserID = "X-User-ID"
	// HeaderIdempotencyKey はチェックアウト開始の再送を識別するヘッダー
	HeaderIdempotencyKey = "Idempotency-Key"

	contextKeyUserID = "user_id"
)

var errMissingSubject = errors.New("sub クレームがありません")

// Identity は利用者IDを解決してコンテキストに格納するミドルウェア
// secret が設定されていれば HS256 の Bearer トークンの sub を、なければ X-User-ID ヘッダーを使う
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var userID string
			if secret == "" {
				userID = strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
				if userID == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
				}
			} else {
				auth := c.Request().Header.Get(echo.HeaderAuthorization)
				if !strings.HasPrefix(auth, "Bearer ") {
					return echo.NewHTTPError(http.StatusUnauthorized, "Bearer トークンが必要です")
				}
				sub, err := ParseSubject(secret, strings.TrimPrefix(auth, "Bearer "))
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "トークンが無効です")
				}
				userID = sub
			}
			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

// ParseSubject は HS256 で署名されたトークンを検証し sub クレームを返す
func ParseSubject(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

// UserIDFrom は Identity が格納した利用者IDを返す
func UserIDFrom(c echo.Context) string {
	if v, ok := c.Get(contextKeyUserID).(string); ok {
		return v
	}
	return ""
}
