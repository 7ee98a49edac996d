package normalize

import (
	"math"
	"regexp"
	"strconv"
)

var (
	cvRe = regexp.MustCompile(`\((\d+)\s*[cC][vV]\)`)
	kwRe = regexp.MustCompile(`(\d+)\s*[kK][wW]`)
)

// kwToCV converts kilowatts to metric horsepower.
const kwToCV = 1.36

// Power extracts engine power in CV (metric horsepower) from a scraped
// model/version string. A "(136 CV)" token wins over a kW figure; a bare
// "100 kW" is converted and rounded. Returns nil when neither is present.
func Power(text string) *int {
	if m := cvRe.FindStringSubmatch(text); m != nil {
		if cv, err := strconv.Atoi(m[1]); err == nil {
			return &cv
		}
	}
	if m := kwRe.FindStringSubmatch(text); m != nil {
		if kw, err := strconv.Atoi(m[1]); err == nil {
			cv := int(math.Round(float64(kw) * kwToCV))
			return &cv
		}
	}
	return nil
}
