// Package player reads what the local Spotify desktop client is playing.
package player

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"dynamite/internal/core"
)

// ScriptTimeout bounds a single osascript invocation.
const ScriptTimeout = 5 * time.Second

const (
	isRunningScript = `application "Spotify" is running`

	// Guarded so asking about the track never launches the app.
	currentTrackScript = `if application "Spotify" is running then
	tell application "Spotify"
		set t to current track
		return (id of t) & tab & (name of t) & tab & (artist of t) & tab & (album of t) & tab & (played count of t)
	end tell
end if
return ""`

	trackFields = 5
)

// ScriptRunner executes an AppleScript and returns its trimmed output.
type ScriptRunner func(ctx context.Context, script string) (string, error)

// AppleScriptPlayer implements core.PlayerQuery with osascript.
type AppleScriptPlayer struct {
	run ScriptRunner
}

// NewAppleScriptPlayer uses runner, or osascript when runner is nil.
func NewAppleScriptPlayer(runner ScriptRunner) *AppleScriptPlayer {
	if runner == nil {
		runner = runOSAScript
	}
	return &AppleScriptPlayer{run: runner}
}

func (p *AppleScriptPlayer) IsRunning(ctx context.Context) (bool, error) {
	out, err := p.run(ctx, isRunningScript)
	if err != nil {
		return false, fmt.Errorf("failed to query player: %w", err)
	}
	switch out {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected player state %q", out)
	}
}

func (p *AppleScriptPlayer) CurrentTrack(ctx context.Context) (*core.PlayerTrack, error) {
	out, err := p.run(ctx, currentTrackScript)
	if err != nil {
		return nil, fmt.Errorf("failed to query current track: %w", err)
	}
	return parseTrack(out)
}

// parseTrack reads the tab separated script output. Empty output means no track.
func parseTrack(out string) (*core.PlayerTrack, error) {
	out = strings.TrimRight(out, "\r\n")
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	fields := strings.Split(out, "\t")
	if len(fields) != trackFields {
		return nil, fmt.Errorf("unexpected track output with %d fields", len(fields))
	}

	id := fields[0]
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		return nil, nil
	}

	played, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		played = 0
	}

	return &core.PlayerTrack{
		ID:          id,
		Name:        fields[1],
		Artist:      fields[2],
		Album:       fields[3],
		PlayedCount: played,
	}, nil
}

func runOSAScript(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ScriptTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("osascript: %w: %s", err, msg)
		}
		return "", fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
