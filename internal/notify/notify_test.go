package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbsmedya/outreachkpi/internal/logger"
)

func notice(i int) Notice {
	return Notice{Level: LevelInfo, Dataset: "email", Title: fmt.Sprintf("n%d", i), Time: time.Unix(int64(i), 0)}
}

func TestRing_RecentNewestFirst(t *testing.T) {
	r := NewRing(3)
	assert.Empty(t, r.Recent(0))

	for i := 1; i <= 5; i++ {
		r.Notify(notice(i))
	}

	recent := r.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "n5", recent[0].Title)
	assert.Equal(t, "n4", recent[1].Title)
	assert.Equal(t, "n3", recent[2].Title)

	limited := r.Recent(2)
	require.Len(t, limited, 2)
	assert.Equal(t, "n5", limited[0].Title)
}

func TestRing_PartiallyFilled(t *testing.T) {
	r := NewRing(0)
	r.Notify(notice(1))
	r.Notify(notice(2))

	recent := r.Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, "n2", recent[0].Title)
	assert.Equal(t, "n1", recent[1].Title)
}

func TestLogNotifier_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(logger.NewWithCore(core))

	n.Notify(Notice{Level: LevelError, Dataset: "linkedin", Title: "fetch failed", Message: "status 502"})
	n.Notify(Notice{Level: LevelWarning, Dataset: "linkedin", Title: "no records"})
	n.Notify(Notice{Level: LevelInfo, Dataset: "linkedin", Title: "loaded"})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Equal(t, "fetch failed", entries[0].Message)
	assert.Equal(t, "linkedin", entries[0].ContextMap()["dataset"])
	assert.Equal(t, "status 502", entries[0].ContextMap()["message"])
}

func TestFanout(t *testing.T) {
	first := NewRing(5)
	second := NewRing(5)
	f := Fanout{first, nil, second}

	f.Notify(notice(1))
	f.Notify(notice(2))

	assert.Len(t, first.Recent(0), 2)
	titles := []string{}
	for _, n := range second.Recent(0) {
		titles = append(titles, n.Title)
	}
	assert.Equal(t, []string{"n2", "n1"}, titles)
}
