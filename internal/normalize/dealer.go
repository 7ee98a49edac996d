package normalize

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DealerRule maps a substring of a scraped dealer name to its canonical
// display name. Rules are evaluated in order; first match wins, so more
// specific entries ("barcelona premium") must precede broader ones
// ("barcelona").
type DealerRule struct {
	Match   string `yaml:"match"`
	Display string `yaml:"display"`
}

// UnknownDealer is returned for blank dealer names.
const UnknownDealer = "Sin Información"

// defaultDealerRules is the canonical alias table for the dealer networks
// present in the scraped sources. The membership is business policy owned
// by the sales team; extend it via a rules file, not here.
var defaultDealerRules = []DealerRule{
	{"barcelona premium", "Barcelona Premium"},
	{"barcelona", "Barcelona Premium"},
	{"oliva motor", "Oliva Motor"},
	{"oliva", "Oliva Motor"},
	{"grünblau", "Grünblau Motor"},
	{"quadis", "Quadis"},
	{"motor munich", "Motor Munich"},
	{"movitransa", "Movitransa"},
	{"vehinter", "Vehinter"},
	{"adler", "Adler Motor"},
	{"automoviles", "Automóviles"},
	{"celtamotor", "Celtamotor"},
	{"proa premium", "Proa Premium"},
	{"proa", "Proa"},
	{"lugauto", "Lugauto"},
	{"fuenteolid", "BMW Fuenteolid"},
	{"bmw marcos", "BMW Marcos"},
	{"enekuri", "Enekuri Motor"},
	{"automotor", "Automotor"},
	{"momentum", "Momentum"},
	{"movilnorte", "Movilnorte"},
	{"augusta", "Augusta"},
	{"triocar", "Triocar"},
	{"san pablo", "San Pablo Motor"},
	{"auto premier", "Auto Premier"},
	{"hispamovil", "Hispamovil"},
	{"bymycar", "BYmyCAR"},
	{"caetano", "Caetano"},
	{"bernesga", "Bernesga Motor"},
	{"maberauto", "Maberauto"},
	{"pruna", "Pruna Motor"},
	{"tormes", "Tormes Motor"},
	{"mandel", "Mandel Motor"},
	{"lurauto", "Lurauto"},
	{"san rafael", "San Rafael Motor"},
	{"amiocar", "Amiocar"},
	{"marmotor", "Marmotor"},
	{"motor gorbea", "Motor Gorbea"},
	{"novomovil", "Novomóvil"},
	{"cabrero", "Cabrero"},
	{"lizaga", "Lizaga"},
	{"unicars", "Unicars"},
	{"burgocar", "Burgocar"},
	{"avilcar", "Avilcar"},
	{"ilbira", "Ilbira Motor"},
	{"carteya", "Carteya Motor"},
	{"motri", "Motri Motor"},
	{"albamocion", "Albamocion"},
	{"ceres", "Ceres Motor"},
	{"murcia premium", "Murcia Premium"},
	{"cartagena premium", "Cartagena Premium"},
	{"mini españa", "MINI España Oficial"},
	{"fersan", "Automóviles Fersan"},
}

// DealerNormalizer canonicalizes free-text dealer names via an ordered
// substring rule table. Matching is diacritic-insensitive.
type DealerNormalizer struct {
	rules []DealerRule // Match pre-folded
}

// NewDealerNormalizer builds a normalizer over the default rule table.
func NewDealerNormalizer() *DealerNormalizer {
	return newDealerNormalizer(defaultDealerRules)
}

// NewDealerNormalizerFromFile builds a normalizer from a YAML rules file:
// a list of {match, display} entries replacing the default table.
func NewDealerNormalizerFromFile(path string) (*DealerNormalizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read dealer rules %s", path)
	}
	var rules []DealerRule
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, eris.Wrap(err, "normalize: parse dealer rules")
	}
	if len(rules) == 0 {
		return nil, eris.Errorf("normalize: dealer rules file %s is empty", path)
	}
	return newDealerNormalizer(rules), nil
}

func newDealerNormalizer(rules []DealerRule) *DealerNormalizer {
	folded := make([]DealerRule, len(rules))
	for i, r := range rules {
		folded[i] = DealerRule{Match: Fold(r.Match), Display: r.Display}
	}
	return &DealerNormalizer{rules: folded}
}

// Normalize maps a scraped dealer name to its canonical display name.
// Blank input yields UnknownDealer; input matching no rule is returned
// trimmed but otherwise untouched.
func (n *DealerNormalizer) Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return UnknownDealer
	}
	folded := Fold(trimmed)
	for _, r := range n.rules {
		if r.Match != "" && strings.Contains(folded, r.Match) {
			return r.Display
		}
	}
	return trimmed
}
