package adapters

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"google.golang.org/genai"
)

const (
	DefaultGeminiAttempts   = 3
	DefaultGeminiRetryDelay = time.Second
)

// withRetry は一時的なエラー（429 や 5xx）のときだけ fn を再試行します。
func withRetry[T any](ctx context.Context, op string, attempts uint, delay time.Duration, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			// キャンセル後はもう再試行しないので、ログも出さない
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "一時的なエラーのため再試行します", "op", op, "attempt", n+1, "error", err)
		}),
	)
}

// isTransient は再試行で回復しうるエラーかどうかを判定します。
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if _, ok := IsRateLimitError(err); ok {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
