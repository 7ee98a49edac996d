package normalize

import (
	"regexp"
	"strings"
)

// bmwVersionRe picks the technical variant token out of a BMW version
// string: "xDrive30 230 kW (313 CV)" -> "xDrive30", "320d Touring" -> "320d".
var bmwVersionRe = regexp.MustCompile(`(?i)([ex]?Drive\d+|M\d+|\d{3}[a-z]+)`)

// miniVersionTrims lists MINI version qualifiers in priority order, most
// specific first. The canonical spelling is appended to the model name.
var miniVersionTrims = []trimRule{
	{jcwRe, "John Cooper Works"},
	{regexp.MustCompile(`cooper\s*se\b`), "Cooper SE"},
	{regexp.MustCompile(`cooper\s*s\s*e\b`), "Cooper S E"},
	{regexp.MustCompile(`cooper\s*sd\b`), "Cooper SD"},
	{regexp.MustCompile(`cooper\s*s\b`), "Cooper S"},
	{regexp.MustCompile(`cooper\s*e\b`), "Cooper E"},
	{regexp.MustCompile(`cooper\s*d\b`), "Cooper D"},
	{regexp.MustCompile(`cooper\s*c\b`), "Cooper C"},
	{regexp.MustCompile(`cooper`), "Cooper"},
	{regexp.MustCompile(`\bone\s*d\b`), "One D"},
	{regexp.MustCompile(`\bone\b`), "One"},
	{regexp.MustCompile(`\bs\s*all4`), "S ALL4"},
	{regexp.MustCompile(`\bse\s*all4`), "SE ALL4"},
	{regexp.MustCompile(`\bs\b`), "S"},
	{regexp.MustCompile(`\be\b`), "E"},
	{regexp.MustCompile(`\bd\b`), "D"},
	{regexp.MustCompile(`\bc\b`), "C"},
}

// ComposeModel merges the feed's separate model and version columns into
// the single model string the matcher works on. For MINI the relevant
// qualifier is a named trim; for BMW it is the technical variant token.
// "iX1" + "xDrive30 230 kW (313 CV)" -> "iX1 xDrive30".
func ComposeModel(modelName, versionText string) string {
	modelName = strings.TrimSpace(modelName)
	versionText = strings.TrimSpace(versionText)
	if versionText == "" {
		return modelName
	}

	if strings.Contains(strings.ToLower(modelName), "mini") {
		lower := strings.ToLower(versionText)
		for _, r := range miniVersionTrims {
			if r.re.MatchString(lower) {
				return modelName + " " + r.variant
			}
		}
		return modelName
	}

	if m := bmwVersionRe.FindStringSubmatch(versionText); m != nil {
		return modelName + " " + m[1]
	}
	// No recognizable token: keep the leading word so at least the engine
	// code survives.
	return modelName + " " + strings.Fields(versionText)[0]
}
