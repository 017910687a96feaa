package content

import (
	"fmt"
	"strings"
	"time"
)

// ContentType is one category from the fixed marketing catalog.
type ContentType struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
}

// Catalog is the fixed, ordered set of post categories. The weekly generator
// cycles through it in this order.
var Catalog = []ContentType{
	{Key: "vistip", Label: "Vistip", Description: "Praktische vistip over techniek, aas of tactiek", Emoji: "🎣"},
	{Key: "spot_highlight", Label: "Stek Spotlight", Description: "Interessant watertype of regio uitlichten (geen exacte locaties)", Emoji: "📍"},
	{Key: "seizoenstip", Label: "Seizoenstip", Description: "Seizoensgebonden advies: wat vangt nu goed en waarom", Emoji: "🌦️"},
	{Key: "vangst_week", Label: "Vangst van de Week", Description: "Highlight een mooie vangst of vissoort", Emoji: "🏆"},
	{Key: "fun_fact", Label: "Fun Fact", Description: "Verrassend weetje over vissen, water of natuur in NL", Emoji: "🧠"},
	{Key: "interactief", Label: "Interactieve Vraag", Description: "Engagementvraag aan de community", Emoji: "💬"},
	{Key: "gear_tip", Label: "Gear & Aas Tip", Description: "Tip over materiaal, aas of uitrusting", Emoji: "🪝"},
}

// TypeByKey looks up a catalog entry.
func TypeByKey(key string) (ContentType, bool) {
	for _, ct := range Catalog {
		if ct.Key == key {
			return ct, true
		}
	}
	return ContentType{}, false
}

var dutchMonths = [...]string{
	"januari", "februari", "maart", "april", "mei", "juni",
	"juli", "augustus", "september", "oktober", "november", "december",
}

// seasonLabel maps a month to the Dutch season name.
func seasonLabel(month time.Month) string {
	switch {
	case month >= time.March && month <= time.May:
		return "lente"
	case month >= time.June && month <= time.August:
		return "zomer"
	case month >= time.September && month <= time.November:
		return "herfst"
	default:
		return "winter"
	}
}

// monthContext is the seasonal talking point injected into the system prompt.
var monthContext = map[time.Month]string{
	time.January:   "- Winter: nachtvissen populair, karper minder actief, snoek pakt goed op dood aas",
	time.February:  "- Februari: laatste maand voor roofvis, maak er gebruik van! Karper begint te roeren",
	time.March:     "- Maart: gesloten tijd roofvis begint. Focus op witvis, karper, brasem. Voorjaar komt eraan!",
	time.April:     "- April: karperseizoen komt op gang, nature awakens, veel vissers aan het water",
	time.May:       "- Mei: topmaand karper, brasem en zeelt. Veel activiteit, lange dagen",
	time.June:      "- Juni: laatste stuk gesloten tijd roofvis. Karper op z'n best. Snoekbaars gaat binnenkort weer open!",
	time.July:      "- Juli: alles open! Roofvisseizoen begint weer. Zomerse nachten = nachtvissen",
	time.August:    "- Augustus: topmaand voor alle vissoorten. Warm water, actieve vis",
	time.September: "- September: herfst begint, snoek wordt actiever, karper vreet zich vol voor de winter",
	time.October:   "- Oktober: gouden herfst, snoek op z'n best, grote karpers mogelijk",
	time.November:  "- November: wintervissen begint, meerval laatste kansen, snoek blijft goed",
	time.December:  "- December: rustig aan het water, echte diehards. Dead baiting voor snoek, winterkarper",
}

const systemPromptTemplate = `Je bent de social media manager van StekFinder — de slimste vislocatie-detective van Nederland. Je maakt marketing content voor Instagram en Facebook gericht op Nederlandse sportvissers.

MERKIDENTITEIT:
- StekFinder is een app die AI gebruikt om vislocaties te herkennen uit foto's
- Toon: enthousiast vismaatje, casual, NL vistaal
- Woorden: "dikke bak", "knaller", "stek", "petje af", "strak lijntje", "lekker pansen"
- Nooit: technisch AI-jargon, formeel, Engels (tenzij hashtags)
- Altijd: positief, behulpzaam, community-gericht

REGELS:
1. Schrijf in het Nederlands, casual maar informatief
2. Gebruik relevante emoji's (niet overdreven)
3. Eindig met een call-to-action (vraag, tip om app te proberen, of engagement)
4. Hashtags: mix van NL (#vissen #sportvissen #stekfinder) + internationaal (#fishing #carpfishing)
5. Maximaal 200 woorden voor de post tekst
6. Geef APART de hashtags (niet in de tekst)
7. Geef een image_prompt in het Engels voor AI image generation (beschrijf een mooie visuele scene)
8. Respecteer spot-sharing etiquette: nooit exacte locaties, wel watertypen en regio's
9. Wissel af tussen vissoorten: karper, snoek, baars, snoekbaars, brasem, zeelt, meerval, forel, zeebaars

SEIZOEN & CONTEXT:
- Huidige maand: %s
- Seizoen: %s
- Gesloten tijd roofvis: 1 maart t/m laatste zaterdag juni
%s

Antwoord UITSLUITEND als geldig JSON:
{
  "text": "<post tekst, max 200 woorden>",
  "hashtags": ["#stekfinder", "#vissen", "...nog 5-8 relevante hashtags"],
  "image_prompt": "<Engels, beschrijf een mooie foto/illustratie voor deze post>",
  "hook": "<eerste zin van de post, pakkend en scroll-stoppend>"
}`

// SystemPrompt builds the brand/voice instruction block with the seasonal
// context for the given moment.
func SystemPrompt(now time.Time) string {
	month := now.Month()
	return fmt.Sprintf(systemPromptTemplate, dutchMonths[month-1], seasonLabel(month), monthContext[month])
}

// UserPrompt builds the per-post instruction: either the operator-supplied
// topic or an autonomous pick appropriate to the content type.
func UserPrompt(ct ContentType, customPrompt string) string {
	if strings.TrimSpace(customPrompt) != "" {
		return fmt.Sprintf("Maak een %s post over: %s", ct.Label, customPrompt)
	}
	return fmt.Sprintf("Maak een %s post. %s. Kies zelf een interessant onderwerp dat past bij het seizoen.", ct.Label, ct.Description)
}
