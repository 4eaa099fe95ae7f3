package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Тип для ключа контекста.
type contextKey string

// SubjectKey - ключ для хранения имени оператора в контексте.
const SubjectKey contextKey = "subject"

// tokenIssuer - значение iss в выпускаемых токенах.
const tokenIssuer = "spc-inventory"

// IssueToken выпускает HS256-токен для оператора subject со сроком жизни ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("не задан секретный ключ JWT")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("не указано имя оператора")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}
	return signed, nil
}

// Authenticator проверяет JWT токен аутентификации, подписанный secret.
func Authenticator(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.With(zap.String("component", "auth_middleware"))
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		// Убеждаемся, что метод подписи - HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Debug("Заголовок Authorization отсутствует", zap.String("path", r.URL.Path))
				http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
				return
			}

			// Проверяем формат "Bearer token"
			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				log.Warn("Неверный формат заголовка Authorization")
				http.Error(w, "Неверный формат токена", http.StatusUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(headerParts[1], claims, keyFunc, jwt.WithIssuer(tokenIssuer))
			if err != nil || !token.Valid {
				log.Warn("Невалидный токен", zap.Error(err))
				http.Error(w, "Невалидный токен", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubjectFromContext извлекает имя оператора из контекста запроса.
// Возвращает имя и true, если оно найдено, иначе "" и false.
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	return subject, ok
}
