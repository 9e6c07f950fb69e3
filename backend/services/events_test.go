package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog(t *testing.T) {
	t.Parallel()
	l := NewEventLog()

	l.Add("info", "first")
	l.Add("warning", "second %d", 2)

	events := l.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "second 2", events[0].Message, "newest first")
	assert.Equal(t, "warning", events[0].Type)
	assert.Equal(t, "first", events[1].Message)
}

func TestEventLogBound(t *testing.T) {
	t.Parallel()
	l := NewEventLog()

	for i := 0; i < eventLogCap+25; i++ {
		l.Add("info", "event %d", i)
	}

	events := l.Events()
	require.Len(t, events, eventLogCap)
	assert.Equal(t, fmt.Sprintf("event %d", eventLogCap+24), events[0].Message)
}
