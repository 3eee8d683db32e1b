// Package i18n holds the user-facing texts of the game in French and English.
//
// French is the default language and the fallback for anything the matcher
// does not recognise. Texts are registered in an x/text message catalog so
// that formatted strings (score lines, counters) go through a
// language-aware printer.
package i18n

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Text keys
const (
	Subtitle     = "subtitle"
	Instructions = "instructions"
	NewGame      = "newGame"
	Undo         = "undo"
	Export       = "export"
	Import       = "import"
	GameOver     = "gameOver"
	ConfirmNew   = "confirmNew"
	Imported     = "imported"
	InvalidFile  = "invalidFile"
	AIPlay       = "aiPlay"
	StopAI       = "stopAI"
	NothingUndo  = "nothingToUndo"
	NoMove       = "noMove"
	NewBest      = "newBest"
	ScoreLine    = "scoreLine"
)

// Default is the language used when nothing else matches
var Default = language.French

var supported = []language.Tag{language.French, language.English}

var texts = map[language.Tag]map[string]string{
	language.French: {
		Subtitle:     "Glisse ou utilise les flèches",
		Instructions: "Utilisez ← ↑ → ↓ ou h j k l pour jouer.",
		NewGame:      "Nouvelle partie",
		Undo:         "Annuler",
		Export:       "Exporter",
		Import:       "Importer",
		GameOver:     "Partie terminée : aucun mouvement possible.",
		ConfirmNew:   "Commencer une nouvelle partie ?",
		Imported:     "Importé avec succès",
		InvalidFile:  "Fichier invalide",
		AIPlay:       "Jeu auto",
		StopAI:       "Arrêter l'IA",
		NothingUndo:  "Rien à annuler",
		NoMove:       "Aucune tuile n'a bougé",
		NewBest:      "Nouveau record : %d",
		ScoreLine:    "Score : %d  Meilleur : %d",
	},
	language.English: {
		Subtitle:     "Swipe or use arrow keys",
		Instructions: "Use ← ↑ → ↓ or h j k l to play.",
		NewGame:      "New game",
		Undo:         "Undo",
		Export:       "Export",
		Import:       "Import",
		GameOver:     "Game over: no moves left.",
		ConfirmNew:   "Start new game?",
		Imported:     "Imported successfully",
		InvalidFile:  "Invalid file",
		AIPlay:       "AI Play",
		StopAI:       "Stop AI",
		NothingUndo:  "Nothing to undo",
		NoMove:       "Nothing moved",
		NewBest:      "New best: %d",
		ScoreLine:    "Score: %d  Best: %d",
	},
}

var (
	cat     *catalog.Builder
	matcher = language.NewMatcher(supported)
)

func init() {
	cat = catalog.NewBuilder(catalog.Fallback(Default))
	for tag, table := range texts {
		for key, msg := range table {
			if err := cat.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// Supported returns the languages texts exist for
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match negotiates a supported language from an Accept-Language header or a
// plain code such as "en". Unknown or empty input yields French.
func Match(accept string) language.Tag {
	if accept == "" {
		return Default
	}
	prefs, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(prefs) == 0 {
		return Default
	}
	_, index, confidence := matcher.Match(prefs...)
	if confidence == language.No {
		return Default
	}
	return supported[index]
}

// Printer returns a printer bound to the catalog for tag
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// Text returns the message stored under key for tag
func Text(tag language.Tag, key string, args ...interface{}) string {
	return Printer(tag).Sprintf(key, args...)
}

// Texts returns every message for tag, keyed by text key
func Texts(tag language.Tag) map[string]string {
	table, ok := texts[tag]
	if !ok {
		table = texts[Default]
	}
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// Keys returns the text keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(texts[Default]))
	for k := range texts[Default] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
