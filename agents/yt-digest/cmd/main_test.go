package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = "UC_x5XG1OV2P6uZZ5FSM9Ttw"

// writeConfig writes a valid keyless config whose state and logs live in dir.
func writeConfig(t *testing.T, dir, processedFile string) string {
	t.Helper()
	body := `
[API_KEYS]
gemini_api_key = gem-key

[CHANNELS]
google_devs = ` + testChannel + `

[GEMINI]
prompt_executive_summary = Summarize: {transcript}
prompt_detailed_summary = Details: {transcript}
prompt_key_quotes = Quotes: {transcript}

[EMAIL]
smtp_server = smtp.example.com
smtp_user = bot@example.com
smtp_password = secret
sender_email = bot@example.com

[CHANNEL_RECIPIENTS]
default_recipients = team@example.com

[SETTINGS]
channel_source = rss
processed_videos_file = ` + processedFile + `
output_dir = ` + filepath.Join(dir, "out") + `
log_file = ` + filepath.Join(dir, "logs", "digest.log") + `
`
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func execute(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestMissingConfigFails(t *testing.T) {
	_, err := execute(context.Background(), "run", "--config", filepath.Join(t.TempDir(), "missing.ini"))
	require.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("[CHANNELS]\nchannel_ids = "+testChannel+"\n"), 0644))

	_, err := execute(context.Background(), "run", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini_api_key")
}

func TestUnopenableStoreFails(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "processed.json")
	require.NoError(t, os.Mkdir(store, 0755))

	_, err := execute(context.Background(), "run", "--config", writeConfig(t, dir, store))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processed store")
}

func TestInterruptedRunExitsCleanly(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, filepath.Join(dir, "processed.json"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := execute(ctx, "--config", cfgPath)
	require.NoError(t, err)
}

func TestCheckConfigPrintsChannels(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, filepath.Join(dir, "processed.json"))

	out, err := execute(context.Background(), "check-config", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Channels (1):")
	assert.Contains(t, out, testChannel)
	assert.Contains(t, out, "google_devs")
	assert.Contains(t, out, "team@example.com")
}
