// Package normalize decomposes free-text vehicle and dealer names into
// canonical forms. Scraped model strings vary wildly in spacing, casing and
// token order; the grammar here targets the fixed BMW/MINI catalog the
// group sells rather than attempting generic fuzzy matching.
package normalize

import (
	"regexp"
	"strings"
)

// NormalizedModel is the (base, variant) decomposition of a model string.
// Base identifies the model family ("serie 3", "x1", "mini countryman");
// Variant carries the trim/engine/body qualifier ("320d touring",
// "xdrive30"). An empty Base means the input was empty: callers must treat
// it as "no match possible".
type NormalizedModel struct {
	Base    string `json:"base"`
	Variant string `json:"variant"`
}

// modelRule pairs a family detector with its extractor. Rules are evaluated
// in fixed priority order; the first family whose detector fires wins and
// no later rule is consulted, even if its extractor leaves Variant empty.
type modelRule struct {
	family  string
	detect  *regexp.Regexp
	extract func(s string) NormalizedModel
}

var (
	ixNumRe = regexp.MustCompile(`\b(ix\d+)\s*([ex]?drive\d+|m\d+)?`)
	ixRe    = regexp.MustCompile(`\b(ix)\s*([ex]?drive\d+|m\d+)?`)
	iNumRe  = regexp.MustCompile(`\b(i\d+)\s*([ex]?drive\d+|m\d+)?`)
	serieRe = regexp.MustCompile(`s[ei]?rie?\s*(\d+)\s*(\d{3}[a-z]*)?\s*(gran\s*coupe|coupe|touring|cabrio|compact)?`)
	xRe     = regexp.MustCompile(`\b(x\d+)\s*([a-z]*drive\d+[a-z]*)?`)
	zRe     = regexp.MustCompile(`\b(z\d+)\s*(\d{2,3}[a-z]*)?`)

	powerTokenRe = regexp.MustCompile(`\(\d+\s*cv\)|\b\d+\s*kw\b`)
	multiSpaceRe = regexp.MustCompile(`\s+`)

	acemanSeRe = regexp.MustCompile(`aceman\s*se`)
	acemanERe  = regexp.MustCompile(`aceman\s*e\b`)
	cooperSeRe = regexp.MustCompile(`cooper\s*se`)
	cooperSRe  = regexp.MustCompile(`cooper\s*s\b`)
)

var modelRules = []modelRule{
	{family: "bmw-ix-n", detect: regexp.MustCompile(`\bix\d+`), extract: extractWith(ixNumRe)},
	{family: "bmw-ix", detect: regexp.MustCompile(`\bix\b`), extract: extractWith(ixRe)},
	{family: "bmw-i-n", detect: regexp.MustCompile(`\bi\d+`), extract: extractWith(iNumRe)},
	{family: "bmw-serie", detect: regexp.MustCompile(`s[ei]?rie?\s*\d`), extract: extractSerie},
	{family: "bmw-x", detect: regexp.MustCompile(`\bx\d\b`), extract: extractWith(xRe)},
	{family: "bmw-z", detect: regexp.MustCompile(`\bz\d\b`), extract: extractWith(zRe)},
	{family: "mini", detect: regexp.MustCompile(`mini`), extract: extractMini},
}

// Model normalizes a free-text model/version string into its (base, variant)
// pair. Input casing and surrounding whitespace are irrelevant; embedded
// power tokens like "(136 CV)" or "100 kW" are ignored by the grammar.
func Model(text string) NormalizedModel {
	s := strings.ToLower(strings.TrimSpace(text))
	s = powerTokenRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return NormalizedModel{}
	}

	for _, rule := range modelRules {
		if rule.detect.MatchString(s) {
			if nm := rule.extract(s); nm.Base != "" {
				return nm
			}
			break
		}
	}

	// No family grammar matched: the whole string is the base.
	return NormalizedModel{Base: s}
}

// extractWith builds an extractor around a two-group regexp where group 1
// is the base and group 2 the optional variant.
func extractWith(re *regexp.Regexp) func(string) NormalizedModel {
	return func(s string) NormalizedModel {
		m := re.FindStringSubmatch(s)
		if m == nil {
			return NormalizedModel{}
		}
		return NormalizedModel{Base: m[1], Variant: m[2]}
	}
}

// extractSerie handles the "Serie <n>" family. The variant concatenates an
// optional 3-digit engine code with an optional body-style token, in that
// order, so "BMW Serie 3 320d Touring" and "serie3 touring 320d" do not
// collide; the regexp only captures tokens in canonical order.
func extractSerie(s string) NormalizedModel {
	m := serieRe.FindStringSubmatch(s)
	if m == nil {
		return NormalizedModel{}
	}
	variant := m[2]
	if m[3] != "" {
		body := multiSpaceRe.ReplaceAllString(m[3], " ")
		if variant != "" {
			variant += " " + body
		} else {
			variant = body
		}
	}
	return NormalizedModel{Base: "serie " + m[1], Variant: variant}
}

// MINI trims share qualifier vocabularies; each list is ordered most
// specific first so "cooper se" never degrades to "cooper".
// trimRule maps a qualifier pattern to its canonical variant string.
type trimRule struct {
	re      *regexp.Regexp
	variant string
}

var (
	miniDoorsRe = regexp.MustCompile(`\b(\d+)\s*puertas?\b`)
	miniBodyRe  = regexp.MustCompile(`\b(countryman|clubman|paceman)\b`)
	jcwRe       = regexp.MustCompile(`john\s*cooper\s*works|jcw`)

	miniTrimRules = []trimRule{
		{jcwRe, "jcw"},
		{regexp.MustCompile(`cooper\s*se\b`), "cooper se"},
		{regexp.MustCompile(`cooper\s*s\s*e\b`), "cooper s e"},
		{regexp.MustCompile(`cooper\s*sd\b`), "cooper sd"},
		{regexp.MustCompile(`cooper\s*s\b`), "cooper s"},
		{regexp.MustCompile(`cooper\s*e\b`), "cooper e"},
		{regexp.MustCompile(`cooper\s*d\b`), "cooper d"},
		{regexp.MustCompile(`cooper\s*c\b`), "cooper c"},
		{regexp.MustCompile(`cooper`), "cooper"},
		{regexp.MustCompile(`\bone\s*d\b`), "one d"},
		{regexp.MustCompile(`\bone\b`), "one"},
	}
	miniBodyTrimRules = []trimRule{
		{jcwRe, "jcw"},
		{regexp.MustCompile(`cooper\s*se\b`), "cooper se"},
		{regexp.MustCompile(`cooper\s*s\s*e\b`), "cooper s e"},
		{regexp.MustCompile(`cooper\s*sd\b`), "cooper sd"},
		{regexp.MustCompile(`cooper\s*s\b`), "cooper s"},
		{regexp.MustCompile(`cooper\s*d\b`), "cooper d"},
		{regexp.MustCompile(`cooper\s*c\b`), "cooper c"},
		{regexp.MustCompile(`cooper\s*e\b`), "cooper e"},
		{regexp.MustCompile(`\bs\s*all4`), "s all4"},
		{regexp.MustCompile(`\bse\s*all4`), "se all4"},
		{regexp.MustCompile(`\bone\s*d\b`), "one d"},
		{regexp.MustCompile(`\bs\b`), "s"},
		{regexp.MustCompile(`\be\b`), "e"},
		{regexp.MustCompile(`\bd\b`), "d"},
		{regexp.MustCompile(`\bc\b`), "c"},
		{regexp.MustCompile(`cooper`), "cooper"},
	}
)

// extractMini dispatches the MINI sub-grammar, most specific shape first:
// door-count trims, then Countryman/Clubman/Paceman, then Aceman, then
// Cabrio, then bare Cooper.
func extractMini(s string) NormalizedModel {
	if m := miniDoorsRe.FindStringSubmatch(s); m != nil {
		return NormalizedModel{Base: "mini " + m[1] + " puertas", Variant: firstTrim(s, miniTrimRules)}
	}
	if m := miniBodyRe.FindStringSubmatch(s); m != nil {
		return NormalizedModel{Base: "mini " + m[1], Variant: firstTrim(s, miniBodyTrimRules)}
	}
	if strings.Contains(s, "aceman") {
		nm := NormalizedModel{Base: "mini aceman"}
		switch {
		case jcwRe.MatchString(s):
			nm.Variant = "jcw"
		case acemanSeRe.MatchString(s):
			nm.Variant = "se"
		case acemanERe.MatchString(s):
			nm.Variant = "e"
		}
		return nm
	}
	if strings.Contains(s, "cabrio") {
		nm := NormalizedModel{Base: "mini cabrio"}
		switch {
		case jcwRe.MatchString(s):
			nm.Variant = "jcw"
		case cooperSRe.MatchString(s):
			nm.Variant = "cooper s"
		case strings.Contains(s, "cooper"):
			nm.Variant = "cooper"
		}
		return nm
	}
	if strings.Contains(s, "cooper") {
		nm := NormalizedModel{Base: "mini cooper"}
		switch {
		case jcwRe.MatchString(s):
			nm.Variant = "jcw"
		case cooperSeRe.MatchString(s):
			nm.Variant = "se"
		case cooperSRe.MatchString(s):
			nm.Variant = "s"
		}
		return nm
	}
	return NormalizedModel{}
}

func firstTrim(s string, rules []trimRule) string {
	for _, r := range rules {
		if r.re.MatchString(s) {
			return r.variant
		}
	}
	return ""
}
