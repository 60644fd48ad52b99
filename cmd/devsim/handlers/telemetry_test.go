package handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpanLogger(t *testing.T) {
	t.Parallel()

	var lines []string
	logger := funcr.New(func(_, args string) { lines = append(lines, args) }, funcr.Options{Verbosity: 1})

	provider := newTracerProvider(logger)
	tracer := provider.Tracer("test")

	ctx, run := tracer.Start(context.Background(), "provisioning.run")
	_, step := tracer.Start(ctx, "check-enrollment")
	step.RecordError(errors.New("offline"))
	step.SetStatus(codes.Error, "offline")
	step.End()
	run.End()
	require.NoError(t, provider.Shutdown(context.Background()))

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg"="step span"`)
	assert.Contains(t, lines[0], `"span"="check-enrollment"`)
	assert.Contains(t, lines[0], `"error"="offline"`)
	assert.Contains(t, lines[1], `"msg"="run span"`)
	assert.Contains(t, lines[1], `"span"="provisioning.run"`)
	assert.NotContains(t, lines[1], `"error"`)
}

func TestSpanLogger_QuietByDefault(t *testing.T) {
	t.Parallel()

	var lines []string
	logger := funcr.New(func(_, args string) { lines = append(lines, args) }, funcr.Options{})

	provider := newTracerProvider(logger)
	_, span := provider.Tracer("test").Start(context.Background(), "provisioning.run")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))

	assert.Empty(t, lines)
}

func TestCreate_VeryVerbosePrintsSpans(t *testing.T) {
	setupHandlers(t)
	logs := &syncBuffer{}
	orig := logOutput
	logOutput = logs
	t.Cleanup(func() { logOutput = orig })

	_, err := runCreate(t, CreateOptions{GenerateID: true, NoTUI: true, Verbosity: 2})
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `"msg"="run span"`)
	for _, step := range []string{"get-credentials", "start-simulator"} {
		assert.True(t, strings.Contains(out, `"span"="`+step+`"`), "missing span for %s", step)
	}
}
