package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"eve-intel/internal/chatlog"
	"eve-intel/internal/config"
	"eve-intel/internal/graph"
	"eve-intel/internal/intel"
	"eve-intel/internal/location"
	"eve-intel/internal/notify"
)

type recordingSink struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (s *recordingSink) Deliver(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return nil
}

func (s *recordingSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.got {
		out = append(out, n.Text)
	}
	return out
}

// testUniverse is Jita - Perimeter - Urlen - Sirppala.
func testUniverse() *graph.Universe {
	u := graph.NewUniverse()
	for i, name := range []string{"Jita", "Perimeter", "Urlen", "Sirppala"} {
		u.AddSystem(&graph.System{ID: int32(i + 1), Name: name, Region: "The Forge"})
		if i > 0 {
			u.AddGate(int32(i), int32(i+1))
		}
	}
	u.AddShip("Sabre")
	return u
}

func encode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func header(id, name, listener string) string {
	return "\ufeff\r\n\r\n" +
		"        ---------------------------------------------------------------\r\n\r\n" +
		"          Channel ID:      " + id + "\r\n" +
		"          Channel Name:    " + name + "\r\n" +
		"          Listener:        " + listener + "\r\n" +
		"          Session started: 2024.01.01 12:00:00\r\n" +
		"        ---------------------------------------------------------------\r\n\r\n\r\n"
}

func message(ts, sender, text string) string {
	return fmt.Sprintf("\ufeff[ %s ] %s > %s\r\n", ts, sender, text)
}

func writeLog(t *testing.T, path string, parts ...string) {
	t.Helper()
	var content string
	for _, p := range parts {
		content += p
	}
	require.NoError(t, os.WriteFile(path, encode(t, content), 0644))
}

func testConfig(dir string, catchUp bool) *config.Config {
	cfg := config.Default()
	cfg.ChatLogs = dir
	cfg.Channels = []string{"Local", "Intel"}
	cfg.Players = []string{"Alice"}
	cfg.CatchUp = catchUp
	cfg.Tick = 20 * time.Millisecond
	cfg.WatchDebounce = 20 * time.Millisecond
	return cfg
}

func startPipeline(t *testing.T, cfg *config.Config, sink notify.Sink) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(cfg, testUniverse()).WithSink(sink).Run(ctx) }()
	return cancel, done
}

func stop(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func TestRun_CatchUpReplaysBacklog(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "Local_20240101_120000_1.txt"),
		header("local", "Local", "Alice"),
		message("2024.01.01 12:00:01", "EVE System", "Channel changed to Local : Jita"))
	writeLog(t, filepath.Join(dir, "Intel_20240101_120000_1.txt"),
		header("-1", "Intel", "Alice"),
		message("2024.01.01 12:00:05", "Bob", "Urlen  Sabre  +1"))

	sink := &recordingSink{}
	cancel, done := startPipeline(t, testConfig(dir, true), sink)

	require.Eventually(t, func() bool { return len(sink.texts()) > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"threat 2 jumps from Alice in Url"}, sink.texts())
	stop(t, cancel, done)
}

func TestRun_LiveIntel(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "Local_20240101_120000_1.txt"),
		header("local", "Local", "Alice"),
		message("2024.01.01 12:00:01", "EVE System", "Channel changed to Local : Perimeter"))
	intelPath := filepath.Join(dir, "Intel_20240101_120000_1.txt")
	writeLog(t, intelPath,
		header("-1", "Intel", "Alice"),
		message("2024.01.01 12:00:05", "Bob", "Sirppala +5"))

	sink := &recordingSink{}
	cancel, done := startPipeline(t, testConfig(dir, false), sink)

	// Resume skips the existing intel line; give the watcher time to start.
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, sink.texts())

	f, err := os.OpenFile(intelPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write(encode(t, message("2024.01.01 12:01:00", "Bob", "Perimeter +1")))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(sink.texts()) > 0 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"Alice threat in local, dock immediately"}, sink.texts())
	stop(t, cancel, done)
}

func TestRun_MissingDirectoryIsFatal(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing"), false)
	err := New(cfg, testUniverse()).Run(context.Background())
	assert.Error(t, err)
}

func TestProcessor_RoutesLines(t *testing.T) {
	u := testUniverse()
	sink := &recordingSink{}
	d := notify.NewDebouncer(sink, time.Hour)
	p := &processor{
		tracker:    location.NewTracker(u),
		classifier: intel.NewClassifier(u),
		debouncer:  d,
	}
	ctx := context.Background()

	intelLine := chatlog.Line{Listener: "Alice", Channel: "Intel", Sender: "Bob", Message: "Urlen +1"}
	p.process(ctx, intelLine)
	assert.Equal(t, 0, d.Queued(), "no location yet, line must be dropped")

	p.process(ctx, chatlog.Line{
		Listener: "Alice", Channel: "Local", Local: true,
		Sender: chatlog.SystemSender, Message: "Channel changed to Local : Jita",
	})
	loc, ok := p.tracker.Location("Alice")
	require.True(t, ok)
	assert.Equal(t, "Jita", loc.Name)

	p.process(ctx, intelLine)
	sysLine := intelLine
	sysLine.Sender = chatlog.SystemSender
	p.process(ctx, sysLine)
	assert.Equal(t, 1, d.Queued(), "system sender lines never reach the debouncer")
}
