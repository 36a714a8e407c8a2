package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseQuickEditTime(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	tests := []struct {
		message string
		want    time.Time
	}{
		{"改到下午3点", time.Date(2024, 3, 15, 15, 0, 0, 0, testLocation)},
		{"改到上午9点30分", time.Date(2024, 3, 15, 9, 30, 0, 0, testLocation)},
		{"改到15:30", time.Date(2024, 3, 15, 15, 30, 0, 0, testLocation)},
		{"改到明天下午2点", time.Date(2024, 3, 16, 14, 0, 0, 0, testLocation)},
		{"改到晚上8点", time.Date(2024, 3, 15, 20, 0, 0, 0, testLocation)},
	}
	for _, tt := range tests {
		parsed := a.parseQuickEdit(tt.message)
		require.NotNil(t, parsed, tt.message)
		require.NotNil(t, parsed.StartTs, tt.message)
		require.Equal(t, tt.want.Unix(), *parsed.StartTs, tt.message)
		// Quick time edits always carry a one-hour duration.
		require.Equal(t, tt.want.Add(time.Hour).Unix(), *parsed.EndTs, tt.message)
		require.Nil(t, parsed.Title, tt.message)
		require.Nil(t, parsed.Location, tt.message)
	}
}

func TestParseQuickEditLocation(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	tests := []struct {
		message string
		want    string
	}{
		{"地点改到3号楼", "3号楼"},
		{"改到大会议室", "大会议室"},
		{"改到报告厅", "报告厅"},
	}
	for _, tt := range tests {
		parsed := a.parseQuickEdit(tt.message)
		require.NotNil(t, parsed, tt.message)
		require.NotNil(t, parsed.Location, tt.message)
		require.Equal(t, tt.want, *parsed.Location, tt.message)
		require.Nil(t, parsed.StartTs, tt.message)
	}
}

func TestParseQuickEditNoMatch(t *testing.T) {
	a := newTestAssistant(newFakeStore(), nil)

	for _, message := range []string{"改成线上会议", "随便聊聊", "改到26点"} {
		require.Nil(t, a.parseQuickEdit(message), message)
	}
}
