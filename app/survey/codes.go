package survey

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ddm-research/donation-monitor/app/table"
)

// Codes maps the numeric answer codes of a closed question to labels.
type Codes map[int]string

var Gender = Codes{
	0: "Female",
	1: "Male",
	2: "Divers",
	3: "Prefer not to say/Don't know",
}

var Education = Codes{
	0:  "Noch in der Schule",
	1:  "Schule beendet ohne Abschluss",
	2:  "Volks- oder Hauptschulabschluss",
	3:  "Realschulabschluss/Mittlere Reife/Polytechnische Oberschule",
	4:  "Abgeschlossene Lehre",
	5:  "Fachhochschulreife",
	6:  "Abitur/Hochschulreife",
	7:  "Hochschulabschluss: Bachelor",
	8:  "Hochschulabschluss: Master/Magister/Diplom/Staatsexamen",
	9:  "Hochschulabschluss: Promotion/Habilitation",
	10: "Keine Angabe/weiß nicht",
}

// Location lists the German states.
var Location = Codes{
	0:  "Baden-Württemberg",
	1:  "Bayern",
	2:  "Berlin",
	3:  "Brandenburg",
	4:  "Bremen",
	5:  "Hamburg",
	6:  "Hessen",
	7:  "Mecklenburg-Vorpommern",
	8:  "Niedersachsen",
	9:  "Nordrhein-Westfalen",
	10: "Rheinland-Pfalz",
	11: "Saarland",
	12: "Sachsen",
	13: "Sachsen-Anhalt",
	14: "Schleswig-Holstein",
	15: "Thüringen",
	16: "Ich lebe nicht in Deutschland",
}

// Party is used for both first and second vote.
var Party = Codes{
	0:  "SPD",
	1:  "CDU/CSU",
	2:  "Bündnis 90/Die Grünen",
	3:  "FDP",
	4:  "AfD",
	5:  "Die Linke",
	6:  "BSW",
	7:  "Andere Partei",
	8:  "Ungültig",
	9:  "Keine Angabe",
	10: "Nicht wahlberechtigt",
	11: "Nicht wählen",
}

// Label maps a cell to its label. Null, non-integer and unknown codes
// map to "".
func Label(codes Codes, value any) string {
	code, ok := table.Int(value)
	if !ok {
		return ""
	}
	return codes[code]
}

// SortLabels sorts labels in German collation order, in place.
func SortLabels(labels []string) {
	c := collate.New(language.German)
	sort.SliceStable(labels, func(i, j int) bool {
		return c.CompareString(labels[i], labels[j]) < 0
	})
}
