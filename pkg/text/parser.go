// Package text turns chat text into bot commands, dialog replies and track references.
package text

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"dynamite/internal/core"
)

// CommandKind is a bot command.
type CommandKind int

const (
	// CommandNone means the text is not a command
	CommandNone CommandKind = iota
	// CommandSearch searches the catalog: "search <query>"
	CommandSearch
	// CommandAdd adds a track by reference: "add <track-id-or-url>"
	CommandAdd
	// CommandUpNext lists the next tracks: "next", "up next", "what's up"
	CommandUpNext
	// CommandInfo shows the playing track
	CommandInfo
	// CommandDetail shows album, play count and artwork of the playing track
	CommandDetail
	// CommandHelp lists the commands
	CommandHelp
	// CommandHello greets back
	CommandHello
	// CommandUptime says who and where the bot is
	CommandUptime
)

func (k CommandKind) String() string {
	switch k {
	case CommandSearch:
		return "search"
	case CommandAdd:
		return "add"
	case CommandUpNext:
		return "next"
	case CommandInfo:
		return "info"
	case CommandDetail:
		return "detail"
	case CommandHelp:
		return "help"
	case CommandHello:
		return "hello"
	case CommandUptime:
		return "uptime"
	default:
		return "none"
	}
}

// Command is a parsed bot command. Arg is the search query for
// CommandSearch and the track ID for CommandAdd (empty when the reference
// could not be parsed).
type Command struct {
	Kind CommandKind
	Arg  string
	Raw  string
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	mentionRegex    = regexp.MustCompile(`^@\w+[,:]?\s*`)
	searchRegex     = regexp.MustCompile(`(?is)^search\s+(.+)$`)
	addRegex        = regexp.MustCompile(`(?is)^add\s+(.+)$`)
	upNextRegex     = regexp.MustCompile(`(?i)^(?:what'?s next|up next|next up|what'?s up|next)[?!.]*$`)
	infoRegex       = regexp.MustCompile(`(?i)^(?:info|what'?s playing)[?!.]*$`)
	detailRegex     = regexp.MustCompile(`(?i)^details?[?!.]*$`)
	helpRegex       = regexp.MustCompile(`(?i)^help[?!.]*$`)
	helloRegex      = regexp.MustCompile(`(?i)^(?:heysup|hello|hey|sup|hi)[?!.]*$`)
	uptimeRegex     = regexp.MustCompile(`(?i)^(?:uptime|identify|who are you)[?!.]*$`)
	numberRegex     = regexp.MustCompile(`^#?(\d+)[.)]?$`)

	trackURLRegex  = regexp.MustCompile(`(?i)(?:https?://)?(?:open\.|play\.)?spotify\.com/(?:intl-[a-z-]+/)?track/([a-zA-Z0-9]+)`)
	trackURIRegex  = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`)
	bareTrackRegex = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)

	affirmWords = map[string]bool{
		"y": true, "yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
		"ok": true, "okay": true, "do it": true, "go": true, "👍": true,
	}
	denyWords = map[string]bool{
		"n": true, "no": true, "nope": true, "nah": true, "nvm": true, "never mind": true,
		"nevermind": true, "cancel": true, "👎": true,
	}
)

// ErrNoTrackReference means the text holds no Spotify track ID, URI or URL.
var ErrNoTrackReference = errors.New("no spotify track reference found")

type Parser struct {
	botName string
}

// NewParser creates a parser. botName is stripped from "/cmd@botName" and
// leading "@botName" mentions.
func NewParser(botName string) *Parser {
	return &Parser{botName: strings.TrimPrefix(botName, "@")}
}

// Normalize applies NFKC, unifies apostrophes and collapses whitespace.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// StripAddressing removes a leading mention or slash so "/search@bot x" and
// "@bot search x" both read "search x". The bool reports whether the text
// was addressed to the bot.
func (p *Parser) StripAddressing(text string) (string, bool) {
	text = Normalize(text)
	addressed := false

	if p.botName != "" {
		mention := "@" + strings.ToLower(p.botName)
		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, mention) {
			text = strings.TrimLeft(text[len(mention):], ",: ")
			addressed = true
		}
	} else if loc := mentionRegex.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
		addressed = true
	}

	if strings.HasPrefix(text, "/") {
		text = strings.TrimPrefix(text, "/")
		addressed = true
		first, rest, _ := strings.Cut(text, " ")
		if at := strings.Index(first, "@"); at >= 0 {
			first = first[:at]
		}
		text = strings.TrimSpace(first + " " + rest)
	}

	return text, addressed
}

// ParseCommand classifies already stripped text.
func (p *Parser) ParseCommand(text string) Command {
	text = Normalize(text)
	cmd := Command{Raw: text}

	if m := searchRegex.FindStringSubmatch(text); m != nil {
		cmd.Kind = CommandSearch
		cmd.Arg = strings.TrimSpace(m[1])
		return cmd
	}
	if m := addRegex.FindStringSubmatch(text); m != nil {
		cmd.Kind = CommandAdd
		if id, err := ExtractTrackID(m[1]); err == nil {
			cmd.Arg = id
		}
		return cmd
	}

	switch {
	case upNextRegex.MatchString(text):
		cmd.Kind = CommandUpNext
	case infoRegex.MatchString(text):
		cmd.Kind = CommandInfo
	case detailRegex.MatchString(text):
		cmd.Kind = CommandDetail
	case helpRegex.MatchString(text):
		cmd.Kind = CommandHelp
	case helloRegex.MatchString(text):
		cmd.Kind = CommandHello
	case uptimeRegex.MatchString(text):
		cmd.Kind = CommandUptime
	}
	return cmd
}

// ParseReply maps a dialog reply to a confirmation event.
func ParseReply(text string) core.SessionEvent {
	text = strings.ToLower(Normalize(text))
	text = strings.TrimRight(text, "!.")

	if m := numberRegex.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return core.Selection(n)
		}
	}
	if affirmWords[text] {
		return core.Affirm()
	}
	if denyWords[text] {
		return core.Deny()
	}
	return core.Unrecognized()
}

// ExtractTrackID finds a track ID in an open.spotify.com URL, a
// spotify:track: URI or a bare 22 character ID.
func ExtractTrackID(ref string) (string, error) {
	ref = strings.Trim(strings.TrimSpace(ref), "<>")

	if m := trackURIRegex.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if m := trackURLRegex.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if bareTrackRegex.MatchString(ref) {
		return ref, nil
	}
	return "", ErrNoTrackReference
}
