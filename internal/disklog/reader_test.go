package disklog

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	pos1, err := opened.Writer.Append(stringReader("Hello World"))
	require.NoError(t, err)
	pos2, err := opened.Writer.Append(stringReader("Another Message"))
	require.NoError(t, err)

	reader, err := opened.ReaderFactory.ReadFrom(0)
	require.NoError(t, err)
	defer reader.Close()

	next, err := reader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())
	assert.Equal(t, pos1, next.Item.Position())
	buf := make([]byte, next.Item.Len())
	_, err = readFull(next.Item, buf)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(buf))
	reader = next.Item.Finish()

	next, err = reader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())
	assert.Equal(t, pos2, next.Item.Position())
	buf = make([]byte, next.Item.Len())
	_, err = readFull(next.Item, buf)
	require.NoError(t, err)
	assert.Equal(t, "Another Message", string(buf))
	reader = next.Item.Finish()

	next, err = reader.Next(testContext(t), false)
	require.NoError(t, err)
	assert.True(t, next.IsEnd())
}

func TestPartialPayloadConsumeAdvancesByFullRecord(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	payload := strings.Repeat("x", 1000)
	_, err = opened.Writer.Append(stringReader(payload))
	require.NoError(t, err)
	_, err = opened.Writer.Append(stringReader("second"))
	require.NoError(t, err)

	reader, err := opened.ReaderFactory.ReadFrom(0)
	require.NoError(t, err)
	defer reader.Close()

	next, err := reader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())

	partial := make([]byte, 100)
	n, err := next.Item.Read(partial)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, uint32(900), next.Item.LeftToRead())

	reader = next.Item.Finish()
	assert.Equal(t, LogPosition(1006), reader.Position())

	next, err = reader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())
	buf := make([]byte, next.Item.Len())
	_, err = readFull(next.Item, buf)
	require.NoError(t, err)
	assert.Equal(t, "second", string(buf))
}

func TestChecksumMisalignmentOnNonRecordBoundary(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	_, err = opened.Writer.Append(stringReader("Hello World"))
	require.NoError(t, err)

	reader, err := opened.ReaderFactory.ReadFrom(3)
	require.NoError(t, err)
	defer reader.Close()

	_, err = reader.Next(testContext(t), false)
	assert.ErrorIs(t, err, ErrInvalidItemChecksum)
}

func TestReaderBusyUntilFinish(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	_, err = opened.Writer.Append(stringReader("Hello World"))
	require.NoError(t, err)

	reader, err := opened.ReaderFactory.ReadFrom(0)
	require.NoError(t, err)
	defer reader.Close()

	next, err := reader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())

	_, err = reader.Next(testContext(t), false)
	assert.ErrorIs(t, err, ErrReaderBusy)

	reader = next.Item.Finish()
	next, err = reader.Next(testContext(t), false)
	require.NoError(t, err)
	assert.True(t, next.IsEnd())
}

func TestLiveTailWaitForMoreBlocksThenDelivers(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	pos1, err := opened.Writer.Append(stringReader("first"))
	require.NoError(t, err)

	noWaitReader, err := opened.ReaderFactory.ReadFrom(0)
	require.NoError(t, err)
	defer noWaitReader.Close()

	next, err := noWaitReader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())
	assert.Equal(t, pos1, next.Item.Position())
	noWaitReader = next.Item.Finish()

	next, err = noWaitReader.Next(testContext(t), false)
	require.NoError(t, err)
	assert.True(t, next.IsEnd())

	waitReader, err := opened.ReaderFactory.ReadFrom(noWaitReader.Position())
	require.NoError(t, err)
	defer waitReader.Close()

	type result struct {
		next NextItem
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		n, err := waitReader.Next(context.Background(), true)
		resultCh <- result{n, err}
	}()

	select {
	case <-resultCh:
		t.Fatal("Next returned before a new record was appended")
	case <-time.After(50 * time.Millisecond):
	}

	pos2, err := opened.Writer.Append(stringReader("second"))
	require.NoError(t, err)

	select {
	case r := <-resultCh:
		require.NoError(t, r.err)
		require.False(t, r.next.IsEnd())
		assert.Equal(t, pos2, r.next.Item.Position())
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock after append")
	}
}

func TestWriterCloseWakesWaitingReaderWithEnd(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)

	reader, err := opened.ReaderFactory.ReadFrom(0)
	require.NoError(t, err)
	defer reader.Close()

	type result struct {
		next NextItem
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		n, err := reader.Next(context.Background(), true)
		resultCh <- result{n, err}
	}()

	select {
	case <-resultCh:
		t.Fatal("Next returned before the writer was closed")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, opened.Close())

	select {
	case r := <-resultCh:
		require.NoError(t, r.err)
		assert.True(t, r.next.IsEnd())
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock after writer close")
	}
}

func TestCancelNextLeavesReaderReusable(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	reader, err := opened.ReaderFactory.ReadFrom(0)
	require.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = reader.Next(ctx, true)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = opened.Writer.Append(stringReader("after cancel"))
	require.NoError(t, err)

	next, err := reader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())
	assert.Equal(t, LogPosition(0), next.Item.Position())
}

func TestMultipleReadersObserveIdenticalSequence(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	messages := []string{"one", "two", "three"}
	for _, m := range messages {
		_, err := opened.Writer.Append(stringReader(m))
		require.NoError(t, err)
	}

	readOne := func() []string {
		reader, err := opened.ReaderFactory.ReadFrom(0)
		require.NoError(t, err)
		defer reader.Close()

		var got []string
		for {
			next, err := reader.Next(testContext(t), false)
			require.NoError(t, err)
			if next.IsEnd() {
				return got
			}
			buf := make([]byte, next.Item.Len())
			_, err = readFull(next.Item, buf)
			require.NoError(t, err)
			got = append(got, string(buf))
			reader = next.Item.Finish()
		}
	}

	a := readOne()
	b := readOne()
	assert.Equal(t, messages, a)
	assert.Equal(t, messages, b)
}

var _ io.Reader = (*LogItem)(nil)
