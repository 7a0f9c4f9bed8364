package topicdir

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomcumming/simples/internal/topicname"
)

func mustName(t *testing.T, raw string) topicname.Name {
	t.Helper()
	n, err := topicname.Parse(raw)
	require.NoError(t, err)
	return n
}

func TestAppendToUnknownTopicFails(t *testing.T) {
	dir := New(t.TempDir())
	defer dir.Close()

	_, err := dir.Append(context.Background(), mustName(t, "orders"), strings.NewReader("hi"))
	assert.ErrorIs(t, err, ErrTopicDoesNotExist)
}

func TestCreateTopicThenAppendAndRead(t *testing.T) {
	root := t.TempDir()
	dir := New(root)
	defer dir.Close()

	name := mustName(t, "orders")
	require.NoError(t, dir.CreateTopic(name))

	_, err := dir.Append(context.Background(), name, strings.NewReader("first"))
	require.NoError(t, err)
	pos2, err := dir.Append(context.Background(), name, strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, uint64(11), pos2) // 6 + len("first")

	reader, err := dir.OpenReader(name, 0)
	require.NoError(t, err)
	defer reader.Close()

	next, err := reader.Next(context.Background(), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())
	buf := make([]byte, next.Item.Len())
	_, err = next.Item.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "first", string(buf))

	require.NoError(t, dir.CreateTopic(mustName(t, "orders"))) // idempotent

	_, statErr := filepath.Abs(root)
	require.NoError(t, statErr)
}

func TestConcurrentAppendsToSameTopicAreSerialized(t *testing.T) {
	dir := New(t.TempDir())
	defer dir.Close()

	name := mustName(t, "events")
	require.NoError(t, dir.CreateTopic(name))

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = dir.Append(context.Background(), name, strings.NewReader("x"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	reader, err := dir.OpenReader(name, 0)
	require.NoError(t, err)
	defer reader.Close()

	count := 0
	for {
		next, err := reader.Next(context.Background(), false)
		require.NoError(t, err)
		if next.IsEnd() {
			break
		}
		reader = next.Item.Finish()
		count++
	}
	assert.Equal(t, n, count)
}
