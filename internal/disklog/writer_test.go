package disklog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendReturnsPriorTail(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	pos1, err := opened.Writer.Append(stringReader("Hello World"))
	require.NoError(t, err)
	assert.Equal(t, LogPosition(0), pos1)

	pos2, err := opened.Writer.Append(stringReader("Another Message"))
	require.NoError(t, err)
	assert.Equal(t, LogPosition(17), pos2) // 6 + 11

	pos3, err := opened.Writer.Append(stringReader("Last Message!"))
	require.NoError(t, err)
	assert.Equal(t, LogPosition(38), pos3) // 17 + 6 + 15
}

func TestWriterAppendEmptyPayload(t *testing.T) {
	dir := t.TempDir()
	opened, err := OpenLog(dir)
	require.NoError(t, err)
	defer opened.Close()

	pos, err := opened.Writer.Append(stringReader(""))
	require.NoError(t, err)
	assert.Equal(t, LogPosition(0), pos)

	reader, err := opened.ReaderFactory.ReadFrom(0)
	require.NoError(t, err)
	defer reader.Close()

	next, err := reader.Next(testContext(t), false)
	require.NoError(t, err)
	require.False(t, next.IsEnd())
	assert.Equal(t, uint32(0), next.Item.Len())
}
