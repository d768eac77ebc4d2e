package i18n

// berneseGermanMessages contains the Bärndütsch catalog.
var berneseGermanMessages = map[string]string{
	// Replies to commands
	"reply.not_understood":    "Sorry, das verstah i nid.",
	"reply.hello":             "Sali.",
	"reply.no_results":        "Sorry, nüt gfunde.",
	"reply.no_track":          "sorry, da louft grad nüt.",
	"reply.error":             "Da isch grad dä Fähler passiert: `%s`",
	"reply.auth_expired":      "I ha dr Zuegang zu Spotify verlore. Öpper mues mi nomau amäude.",
	"reply.invalid_reference": "Das gseht nid us wie ne Spotify-Track. Probier `add https://open.spotify.com/track/...`",
	"reply.rate_limited":      "Gmüetlech! Wart e Minute bis zur nächschte Aafrag.",
	"reply.suggested_query":   "Für \"%s\" han i nüt gfunde, drum han i \"%s\" gsuecht.",

	// Confirmation dialog
	"prompt.select":        "Das han i gfunde. Weles?",
	"prompt.select_option": "%d. %s",
	"prompt.select_hint":   "Antwort mit ere Zahl, oder nei zum Abbräche.",
	"prompt.select_retry":  "Nimm e Zahl vo 1 bis %d, oder säg nei.",
	"prompt.confirm":       "Söu i %s grad nach em aktuelle Lied spile?",
	"prompt.confirm_hint":  "Antwort ja oder nei.",
	"prompt.confirm_retry": "Bitte nume ja oder nei.",
	"button.yes":           "Ja",
	"button.no":            "Nei",
	"flow.declined":        "vilech trousch di ja de öppe mau.",
	"flow.abandoned":       "Äuä nid, i vergiss das wider.",
	"flow.moving":          "*I tue %s zvorderscht id Warteschlange.*",
	"flow.added":           "%s isch id Playliste cho.",
	"flow.already_next":    "%s chunnt eh scho als nächschts.",

	// Player and playlist information
	"info.now":            "Das isch %s!",
	"info.detail":         "%s\nAlbum: %s\n%d mau gspilt\n%s",
	"info.up_next":        "Als nächschts:",
	"info.up_next_item":   "%d. %s",
	"info.playlist_empty": "D Playliste isch läär.",
	"info.uptime":         "I bi dr Bot %s und loufe sit %s uf %s.",
	"info.help": "Das chan i:\n" +
		"search <suechi> - es Lied sueche u nachem aktuelle iireie\n" +
		"add <spotify link> - es bestimmts Lied nachem aktuelle iireie\n" +
		"next - zeige was als nächschts chunnt\n" +
		"info - was grad louft\n" +
		"detail - meh zum aktuelle Lied\n" +
		"help - die Nachricht",

	// Announcements to the reporting chat
	"announce.now_playing":  "Jitz louft: %s",
	"announce.stopped":      "Oh nei! Wo isch Spotify hi? S'schiint nümm z'laufe 😨",
	"announce.added":        "%s het %s id Playliste ta.",
	"announce.reauthorize":  "I ha dr Zuegang zu Spotify verlore. Öpper mues sech nomau amäude: %s",
	"announce.reauthorized": "Spotify-Zuegang isch wider da.",
}
