package illustrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// stubGenerator はプロンプト内のページ番号に応じて結果を返すスタブです。
type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	calls   atomic.Int32
	respond func(page int) (string, error)
}

func (s *stubGenerator) GenerateIllustration(_ context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	var page, total int
	for _, line := range strings.Split(prompt, "\n") {
		if _, err := fmt.Sscanf(line, "PAGE %d of %d:", &page, &total); err == nil {
			break
		}
	}
	return s.respond(page)
}

type stubDownloader struct {
	calls   atomic.Int32
	respond func(ref string) (string, error)
}

func (s *stubDownloader) DownloadImageAsBase64(_ context.Context, ref string) (string, error) {
	s.calls.Add(1)
	return s.respond(ref)
}

func story(n int) domain.ParsedStory {
	s := domain.ParsedStory{Title: "Test"}
	for i := 1; i <= n; i++ {
		s.Pages = append(s.Pages, domain.ParsedPage{PageNumber: i, Text: fmt.Sprintf("text %d", i)})
	}
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request(n int) Request {
	return Request{
		Story:        story(n),
		CharacterRef: "CHAR",
		StyleRef:     "STYLE",
		ChildName:    "Mia",
	}
}

func TestIllustrate_AllSucceed(t *testing.T) {
	gen := &stubGenerator{respond: func(page int) (string, error) {
		return fmt.Sprintf("https://img.example/%d.png", page), nil
	}}
	dl := &stubDownloader{respond: func(ref string) (string, error) {
		return "data:image/png;base64," + ref[len(ref)-5:], nil
	}}

	pages := NewPipeline(gen, dl, WithLogger(quietLogger())).Illustrate(context.Background(), request(3))

	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i+1, p.PageNumber)
		assert.Equal(t, fmt.Sprintf("text %d", i+1), p.Text)
		assert.Equal(t, fmt.Sprintf("https://img.example/%d.png", i+1), p.ImageURL)
		assert.Equal(t, fmt.Sprintf("data:image/png;base64,%d.png", i+1), p.ImageBase64)
	}

	for _, prompt := range gen.prompts {
		assert.True(t, strings.HasPrefix(prompt, "STYLE\n\nCHAR\n\n"))
		assert.Contains(t, prompt, prompts.NoTextRule)
	}
}

func TestIllustrate_GenerationFailureDegradesToPlaceholder(t *testing.T) {
	gen := &stubGenerator{respond: func(page int) (string, error) {
		if page == 2 {
			return "", errors.New("model overloaded")
		}
		return fmt.Sprintf("data:image/png;base64,page%d", page), nil
	}}
	dl := &stubDownloader{respond: func(ref string) (string, error) { return ref, nil }}

	pages := NewPipeline(gen, dl, WithLogger(quietLogger())).Illustrate(context.Background(), request(3))

	require.Len(t, pages, 3)
	assert.Equal(t, "data:image/png;base64,page1", pages[0].ImageBase64)
	assert.Equal(t, domain.PlaceholderImage, pages[1].ImageURL)
	assert.Empty(t, pages[1].ImageBase64)
	assert.Equal(t, "text 2", pages[1].Text)
	assert.Equal(t, "data:image/png;base64,page3", pages[2].ImageBase64)
	assert.Equal(t, int32(2), dl.calls.Load())
}

func TestIllustrate_InvalidReferenceIsFailure(t *testing.T) {
	gen := &stubGenerator{respond: func(page int) (string, error) {
		switch page {
		case 1:
			return "", nil
		case 2:
			return "ftp://nope", nil
		default:
			return "https://ok.example/3.png", nil
		}
	}}
	dl := &stubDownloader{respond: func(ref string) (string, error) { return "data:image/png;base64,ok", nil }}

	pages := NewPipeline(gen, dl, WithLogger(quietLogger())).Illustrate(context.Background(), request(3))

	assert.Equal(t, domain.PlaceholderImage, pages[0].ImageURL)
	assert.Equal(t, domain.PlaceholderImage, pages[1].ImageURL)
	assert.Equal(t, "https://ok.example/3.png", pages[2].ImageURL)
	assert.Equal(t, int32(1), dl.calls.Load())
}

func TestIllustrate_DownloadFailureKeepsRawReference(t *testing.T) {
	gen := &stubGenerator{respond: func(page int) (string, error) {
		return fmt.Sprintf("https://img.example/%d.png", page), nil
	}}
	dl := &stubDownloader{respond: func(ref string) (string, error) {
		if strings.HasSuffix(ref, "/1.png") {
			return "", errors.New("404")
		}
		return "data:image/png;base64,x", nil
	}}

	pages := NewPipeline(gen, dl, WithLogger(quietLogger())).Illustrate(context.Background(), request(2))

	assert.Equal(t, "https://img.example/1.png", pages[0].ImageURL)
	assert.Empty(t, pages[0].ImageBase64)
	assert.Equal(t, "https://img.example/1.png", pages[0].DisplayImage())
	assert.Equal(t, "data:image/png;base64,x", pages[1].ImageBase64)
}

func TestIllustrate_ConcurrencyCapAndCallbacks(t *testing.T) {
	var inFlight, peak atomic.Int32
	gen := &stubGenerator{respond: func(page int) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return "data:image/png;base64,x", nil
	}}
	dl := &stubDownloader{respond: func(ref string) (string, error) { return ref, nil }}

	var mu sync.Mutex
	var seen []int
	req := request(8)
	req.OnPage = func(page domain.ParsedPage, completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, completed)
		assert.Equal(t, 8, total)
	}

	pages := NewPipeline(gen, dl, WithMaxConcurrent(3), WithLogger(quietLogger())).Illustrate(context.Background(), req)

	assert.Len(t, pages, 8)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, seen)
}

func TestIllustrate_DownloadsStartAfterAllGenerationsFinish(t *testing.T) {
	const pages = 6
	var finished atomic.Int32
	gen := &stubGenerator{respond: func(page int) (string, error) {
		// 早いページほど先に終わるので、流れ作業ならダウンロードが先に始まってしまう
		time.Sleep(time.Duration(page) * 10 * time.Millisecond)
		defer finished.Add(1)
		if page == 3 {
			return "", errors.New("model error")
		}
		return fmt.Sprintf("https://img.example/%d.png", page), nil
	}}

	var mu sync.Mutex
	var seenAtStart []int32
	dl := &stubDownloader{respond: func(ref string) (string, error) {
		mu.Lock()
		seenAtStart = append(seenAtStart, finished.Load())
		mu.Unlock()
		return "data:image/png;base64,AAAA", nil
	}}

	p := NewPipeline(gen, dl, WithMaxConcurrent(pages), WithLogger(quietLogger()))
	out := p.Illustrate(context.Background(), request(pages))

	require.Len(t, out, pages)
	require.Len(t, seenAtStart, pages-1)
	for _, n := range seenAtStart {
		assert.Equal(t, int32(pages), n)
	}
}

func TestIllustrate_RateLimiterCanceled(t *testing.T) {
	gen := &stubGenerator{respond: func(page int) (string, error) { return "data:image/png;base64,x", nil }}
	dl := &stubDownloader{respond: func(ref string) (string, error) { return ref, nil }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)

	pages := NewPipeline(gen, dl, WithRateLimiter(limiter), WithLogger(quietLogger())).Illustrate(ctx, request(2))

	require.Len(t, pages, 2)
	for _, p := range pages {
		assert.Equal(t, domain.PlaceholderImage, p.ImageURL)
	}
	assert.Equal(t, int32(0), gen.calls.Load())
}

func TestIllustrate_EmptyStory(t *testing.T) {
	gen := &stubGenerator{respond: func(page int) (string, error) { return "", nil }}
	dl := &stubDownloader{respond: func(ref string) (string, error) { return ref, nil }}

	pages := NewPipeline(gen, dl, WithLogger(quietLogger())).Illustrate(context.Background(), request(0))
	assert.Empty(t, pages)
}
