package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryWriter struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  string
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{files: map[string][]byte{}}
}

func (w *memoryWriter) Write(_ context.Context, path string, r io.Reader, _ string) error {
	if w.fail != "" && strings.Contains(path, w.fail) {
		return errors.New("disk full")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[path] = b
	return nil
}

func sampleStory() domain.GeneratedStory {
	return domain.GeneratedStory{
		Title: "The Kind Dragon",
		Pages: []domain.StoryPage{
			{PageNumber: 1, Text: "Mia met a dragon.", ImageURL: "https://img.example.com/1.png", ImageBase64: asset.EncodeDataURI("image/png", []byte("png-1"))},
			{PageNumber: 2, Text: "The dragon was sad.", ImageURL: "https://img.example.com/2.png"},
			{PageNumber: 3, Text: "Mia shared her cake.", ImageURL: domain.PlaceholderImage},
		},
	}
}

func TestStoryPublisher_Publish(t *testing.T) {
	w := newMemoryWriter()
	p := NewStoryPublisher(w)
	meta := Metadata{RunID: "run-1", ChildName: "Mia", MoralID: "kindness", MoralLabel: "Kindness"}

	res, err := p.Publish(context.Background(), sampleStory(), meta, Options{OutputDir: "out"})
	require.NoError(t, err)

	dir := filepath.Join("out", "mia_the-kind-dragon")
	assert.Equal(t, dir, res.Dir)
	require.Len(t, res.ImagePaths, 3)
	assert.Equal(t, filepath.Join(dir, "images", "page_1.png"), res.ImagePaths[0])
	assert.Empty(t, res.ImagePaths[1])
	assert.Equal(t, []byte("png-1"), w.files[res.ImagePaths[0]])

	var doc struct {
		RunID string                `json:"run_id"`
		Story domain.GeneratedStory `json:"story"`
	}
	require.NoError(t, json.Unmarshal(w.files[res.JSONPath], &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Len(t, doc.Story.Pages, 3)

	md := string(w.files[res.MarkdownPath])
	assert.True(t, strings.HasPrefix(md, "# The Kind Dragon\n"))
	assert.Contains(t, md, "![Page 1](images/page_1.png)")
	assert.Contains(t, md, "![Page 2](https://img.example.com/2.png)")
	assert.Contains(t, md, "![Page 3]("+domain.PlaceholderImage+")")
	assert.Contains(t, md, "Mia shared her cake.")
	assert.NotContains(t, md, "data:image/")
}

func TestStoryPublisher_PublishToBucket(t *testing.T) {
	w := newMemoryWriter()

	res, err := NewStoryPublisher(w).Publish(context.Background(), sampleStory(), Metadata{ChildName: "Mia"}, Options{OutputDir: "gs://stories/out"})
	require.NoError(t, err)

	assert.Equal(t, "gs://stories/out/mia_the-kind-dragon", res.Dir)
	assert.Equal(t, "gs://stories/out/mia_the-kind-dragon/images/page_1.png", res.ImagePaths[0])
	assert.Contains(t, w.files, res.MarkdownPath)
	assert.Contains(t, string(w.files[res.MarkdownPath]), "![Page 1](images/page_1.png)")
}

func TestStoryPublisher_WriteError(t *testing.T) {
	w := newMemoryWriter()
	w.fail = asset.DefaultStoryJSON

	_, err := NewStoryPublisher(w).Publish(context.Background(), sampleStory(), Metadata{ChildName: "Mia"}, Options{OutputDir: "out"})
	assert.Error(t, err)
}

func TestStoryPublisher_SkipsBrokenImage(t *testing.T) {
	story := sampleStory()
	story.Pages[0].ImageBase64 = "data:image/png;base64,@@@"

	res, err := NewStoryPublisher(newMemoryWriter()).Publish(context.Background(), story, Metadata{ChildName: "Mia"}, Options{OutputDir: "out"})
	require.NoError(t, err)
	assert.Empty(t, res.ImagePaths[0])
}

func TestReviewArchive_SaveForReview(t *testing.T) {
	w := newMemoryWriter()
	archive := NewReviewArchive(w, "review")
	story := sampleStory()
	story.Pages[1].ImageBase64 = asset.EncodeDataURI("image/jpeg", []byte("jpg-2"))

	err := archive.SaveForReview(context.Background(), generator.ReviewBundle{
		Title: story.Title, ChildName: "Mia", Moral: "Kindness", Pages: story.Pages,
	})
	require.NoError(t, err)

	dir := filepath.Join("review", "mia_the-kind-dragon")
	assert.Equal(t, []byte("png-1"), w.files[filepath.Join(dir, "page_1.png")])
	assert.Equal(t, []byte("jpg-2"), w.files[filepath.Join(dir, "page_2.jpg")])
	assert.Contains(t, string(w.files[filepath.Join(dir, "metadata.json")]), `"moral": "Kindness"`)
	assert.Len(t, w.files, 3)
}

func TestReviewArchive_ReportsFailures(t *testing.T) {
	w := newMemoryWriter()
	w.fail = "page_1"

	err := NewReviewArchive(w, "review").SaveForReview(context.Background(), generator.ReviewBundle{
		Title: "T", ChildName: "Mia", Pages: sampleStory().Pages,
	})
	assert.ErrorContains(t, err, "page 1")
}
