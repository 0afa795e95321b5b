package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestMinIO(t *testing.T) *MinIO {
	m, err := NewMinIO(Options{
		Endpoint:   "localhost:9000",
		AccessKey:  "minioadmin",
		SecretKey:  "minioadmin",
		Bucket:     "lesson-content",
		Region:     "us-east-1",
		PresignTTL: 5 * time.Minute,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return m
}

func TestResolveAbsolutePassesThrough(t *testing.T) {
	m := newTestMinIO(t)
	got, err := m.Resolve(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", got)
}

func TestResolvePresigns(t *testing.T) {
	m := newTestMinIO(t)

	got, err := m.Resolve(context.Background(), "lessons/notes.pdf")
	require.NoError(t, err)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/lesson-content/lessons/notes.pdf", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))

	got, err = m.Resolve(context.Background(), "s3://archive/2024/slides.pdf")
	require.NoError(t, err)
	u, err = url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/archive/2024/slides.pdf", u.Path)
}

func TestResolveRejectsBadRefs(t *testing.T) {
	m := newTestMinIO(t)
	_, err := m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyRef)

	_, err = m.Resolve(context.Background(), "s3://bucket-only")
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	k := ObjectKey(`C:\uploads\Week 1.MP4`)
	assert.True(t, strings.HasPrefix(k, "lessons/"))
	assert.True(t, strings.HasSuffix(k, ".mp4"))
	assert.NotEqual(t, k, ObjectKey(`C:\uploads\Week 1.MP4`))
}

func TestPassthrough(t *testing.T) {
	var p Passthrough
	got, err := p.Resolve(context.Background(), "http://cdn.example.com/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example.com/a.pdf", got)

	_, err = p.Resolve(context.Background(), "lessons/a.pdf")
	assert.Error(t, err)
}
