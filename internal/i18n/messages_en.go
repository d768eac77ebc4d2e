package i18n

// englishMessages is the reference catalog; every other language falls back to it.
var englishMessages = map[string]string{
	// Replies to commands
	"reply.not_understood":    "Sorry, I don't understand that.",
	"reply.hello":             "Hello.",
	"reply.no_results":        "Sorry, no results.",
	"reply.no_track":          "sorry, no track.",
	"reply.error":             "Looks like this error just happened: `%s`",
	"reply.auth_expired":      "I lost access to Spotify. Someone has to sign me in again before I can touch the playlist.",
	"reply.invalid_reference": "That doesn't look like a Spotify track. Try `add https://open.spotify.com/track/...`",
	"reply.rate_limited":      "Easy there! Give me a minute before the next request.",
	"reply.suggested_query":   "Nothing for \"%s\", so I looked for \"%s\" instead.",

	// Confirmation dialog
	"prompt.select":        "Here's what I found. Which one?",
	"prompt.select_option": "%d. %s",
	"prompt.select_hint":   "Reply with a number, or no to cancel.",
	"prompt.select_retry":  "Pick a number from 1 to %d, or say no.",
	"prompt.confirm":       "Add %s to play right after the current song?",
	"prompt.confirm_hint":  "Reply yes or no.",
	"prompt.confirm_retry": "Just yes or no, please.",
	"button.yes":           "Yes",
	"button.no":            "No",
	"flow.declined":        "maybe you'll work up the courage one day.",
	"flow.abandoned":       "Never mind, I'll forget about that one.",
	"flow.moving":          "*Moving %s to the top of the queue.*",
	"flow.added":           "%s added to playlist.",
	"flow.already_next":    "%s is already up next.",

	// Player and playlist information
	"info.now":            "This is %s!",
	"info.detail":         "%s\nAlbum: %s\nPlayed %d times\n%s",
	"info.up_next":        "Up next:",
	"info.up_next_item":   "%d. %s",
	"info.playlist_empty": "The playlist is empty.",
	"info.uptime":         "I am a bot named %s. I have been running for %s on %s.",
	"info.help": "Here's what I can do:\n" +
		"search <query> - find a track and queue it after the current song\n" +
		"add <spotify link> - queue a specific track after the current song\n" +
		"next - show what plays next\n" +
		"info - what's playing right now\n" +
		"detail - more about the current track\n" +
		"help - this message",

	// Announcements to the reporting chat
	"announce.now_playing":  "Now playing: %s",
	"announce.stopped":      "Oh no! Where did Spotify go? It doesn't seem to be running 😨",
	"announce.added":        "%s added %s to the playlist.",
	"announce.reauthorize":  "I lost access to Spotify. An operator has to sign in again: %s",
	"announce.reauthorized": "Spotify access restored.",
}
