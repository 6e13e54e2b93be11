package gamelog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/callvote/internal/model"
)

func TestPlayerTuple(t *testing.T) {
	tests := []struct {
		name string
		p    model.Player
		want string
	}{
		{
			name: "human on CT",
			p:    model.Player{Name: "alice", UserID: 12, NetworkID: "STEAM_1:0:1234", Team: model.TeamCT},
			want: `"alice<12><STEAM_1:0:1234><CT>"`,
		},
		{
			name: "bot network id is forced",
			p:    model.Player{Name: "Bot Vic", UserID: 3, NetworkID: "", Bot: true, Team: model.TeamTerrorist},
			want: `"Bot Vic<3><BOT><TERRORIST>"`,
		},
		{
			name: "unassigned",
			p:    model.Player{Name: "bob", UserID: 7, NetworkID: "STEAM_1:1:99"},
			want: `"bob<7><STEAM_1:1:99><Unassigned>"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PlayerTuple(tt.p))
		})
	}
}

func TestPrintfFormatsSourceLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, zerolog.Nop())
	l.SetClock(func() time.Time {
		return time.Date(2026, time.October, 18, 9, 4, 5, 0, time.UTC)
	})

	l.Printf("%s triggered \"Vote_Started\"\n", ConsoleTuple)
	l.Printf("Vote succeeded \"%s %s\"", "Kick", "alice")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Equal(t, []string{
		`L 10/18/2026 - 09:04:05: "Console<0><Console><Console>" triggered "Vote_Started"`,
		`L 10/18/2026 - 09:04:05: Vote succeeded "Kick alice"`,
	}, lines)
}

func TestOpenRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	l := Open(Options{Path: path}, zerolog.Nop())
	l.Printf("World triggered \"Round_Start\"")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `World triggered "Round_Start"`)
	require.True(t, strings.HasPrefix(string(data), "L "))
}
