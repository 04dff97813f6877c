package roster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const sample = "Participant Code\tAge\tParticipant's Ward\tBuddy1\tBuddy2\tBuddy3\n" +
	"M101\t14.5\tPlano 2nd\tW202\t\t\n" +
	"W202\t14.1\tCoppell 1st\tM101\tM303\t\n" +
	"M303\t12\tAllen\t\t\t\n"

func TestRead(t *testing.T) {
	r := NewReader(DefaultFormat, zap.NewNop())
	got, err := r.Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "M101", got[0].Name)
	assert.Equal(t, 14.5, got[0].Age)
	assert.Equal(t, "Plano 2nd", got[0].Unit)
	assert.False(t, got[0].IsFemale)
	assert.Equal(t, []string{"W202"}, got[0].Requests())

	assert.True(t, got[1].IsFemale)
	assert.Equal(t, []string{"M101", "M303"}, got[1].Requests())
	assert.Empty(t, got[2].Requests())
}

func TestReadExtraFriendColumn(t *testing.T) {
	format := DefaultFormat
	format.Columns.Friends = []string{"B1", "B2", "B3", "B4"}
	format.Delimiter = ","

	core, logs := observer.New(zapcore.WarnLevel)
	r := NewReader(format, zap.New(core))
	in := "Participant Code,Age,Participant's Ward,B1,B2,B3,B4\nM1,13,U,a,b,c,d\n"
	got, err := r.Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b", "c"}, got[0].Requests())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "dropping friend request", entry.Message)
	assert.Equal(t, "d", entry.ContextMap()["friend"])
}

func TestReadErrors(t *testing.T) {
	r := NewReader(DefaultFormat, zap.NewNop())
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "empty roster"},
		{"missing column", "Participant Code\tAge\n", "Participant's Ward"},
		{"bad age", "Participant Code\tAge\tParticipant's Ward\tBuddy1\tBuddy2\tBuddy3\nM1\tfourteen\tU\t\t\t\n", "line 2"},
		{"duplicate", "Participant Code\tAge\tParticipant's Ward\tBuddy1\tBuddy2\tBuddy3\nM1\t14\tU\t\t\t\nM1\t15\tU\t\t\t\n", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Read(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	got, err := NewReader(DefaultFormat, zap.NewNop()).ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = NewReader(DefaultFormat, zap.NewNop()).ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
