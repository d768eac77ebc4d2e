package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type envSection struct {
	title string
	flags []string
}

var envSections = []envSection{
	{"Telegram Configuration (Recommended - Default enabled)",
		[]string{"telegram-enabled", "telegram-bot-token", "telegram-group-id"}},
	{"WhatsApp Configuration (Optional)",
		[]string{"whatsapp-enabled", "whatsapp-group-jid", "whatsapp-device-name", "whatsapp-session-path"}},
	{"Spotify Configuration (Required)",
		[]string{"spotify-client-id", "spotify-client-secret", "spotify-redirect-url", "spotify-playlist-id", "spotify-team"}},
	{"Credential Storage",
		[]string{"credentials-backend", "credentials-path", "credentials-dsn"}},
	{"Authorization",
		[]string{"auth-refresh-interval", "auth-expiry-margin", "auth-interactive"}},
	{"Playback Sampling",
		[]string{"player-source", "player-poll-interval", "player-sample-error-policy"}},
	{"LLM Query Suggestions (Optional)",
		[]string{"llm-provider", "llm-model", "llm-api-key", "llm-base-url"}},
	{"Bot Behaviour",
		[]string{"bot-name", "language", "confirm-timeout-secs", "max-confirm-retries",
			"flood-limit-per-minute", "announce-track-changes"}},
	{"HTTP Server (OAuth callback, health and metrics)",
		[]string{"server-host", "server-port"}},
	{"Logging",
		[]string{"log-level", "log-format"}},
}

// secretFlags are written commented out with an empty value.
var secretFlags = map[string]bool{
	"telegram-bot-token":    true,
	"spotify-client-secret": true,
	"llm-api-key":           true,
	"credentials-dsn":       true,
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# Dynamite Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: DYNAMITE_<SECTION>_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		generateSection(&content, cmd, section)
	}
	generateQuickSetupGuide(&content)

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", section.title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(section.flags, ", --"))

	for _, name := range section.flags {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(content, "# %s\n", f.Usage)
		if secretFlags[name] {
			fmt.Fprintf(content, "# %s=\n", flagToEnvVar(name))
			continue
		}
		fmt.Fprintf(content, "%s=%s\n", flagToEnvVar(name), getDefaultValueString(cmd, name))
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return "DYNAMITE_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func generateQuickSetupGuide(content *strings.Builder) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# QUICK SETUP GUIDE\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("\n")
	content.WriteString("# 1. SPOTIFY SETUP (Required):\n")
	content.WriteString("#    - Go to https://developer.spotify.com/dashboard and create an app\n")
	content.WriteString("#    - Add redirect URI: http://127.0.0.1:8080/callback\n")
	content.WriteString("#    - Copy Client ID and Secret to the config above\n")
	content.WriteString("#    - Get the playlist ID from its URL (the part after /playlist/)\n")
	content.WriteString("#    - On first start open the printed URL and paste the code, or set\n")
	content.WriteString("#      DYNAMITE_AUTH_INTERACTIVE=false and let the callback route finish sign-in\n")
	content.WriteString("\n")
	content.WriteString("# 2. CHAT SETUP:\n")
	content.WriteString("#    - Telegram: create a bot with @BotFather and add it to your group\n")
	content.WriteString("#    - WhatsApp: enable it and scan the QR code printed on first start\n")
	content.WriteString("\n")
	content.WriteString("# 3. PLAYBACK:\n")
	content.WriteString("#    - applescript samples the Spotify app on macOS\n")
	content.WriteString("#    - webapi asks Spotify for the playback state of the signed in user\n")
	content.WriteString("\n")
	content.WriteString("# 4. TEST CONFIGURATION:\n")
	content.WriteString("#    go run ./cmd/dynamite --help                 # See all CLI options\n")
	content.WriteString("#    go run ./cmd/dynamite --log-level=debug      # Run with debug logging\n")
	content.WriteString("\n")
	content.WriteString("# Issue: \"Bot doesn't answer in the group\"\n")
	content.WriteString("# - Mention the bot by name, start with a slash or reply to one of its messages\n")
	content.WriteString("# - Check logs with DYNAMITE_LOG_LEVEL=debug\n")
}
