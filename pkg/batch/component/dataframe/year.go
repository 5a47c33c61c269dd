package dataframe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidYearLabel is returned by ParseYearLabel for labels other than 'F' and four digits.
var ErrInvalidYearLabel = errors.New("invalid year label")

// YearLabelPrefix is the only prefix ParseYearLabel accepts.
const YearLabelPrefix = "F"

var yearLabel = regexp.MustCompile(`^` + YearLabelPrefix + `[0-9]{4}$`)

// ParseYearLabel converts a year column label such as "F1961" into 1961.
func ParseYearLabel(label string) (int32, error) {
	if !yearLabel.MatchString(label) {
		return 0, fmt.Errorf("%w: %q does not match F<4 digits>", ErrInvalidYearLabel, label)
	}
	year, err := strconv.ParseInt(label[1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidYearLabel, label, err)
	}
	return int32(year), nil
}

// YearLabel formats year as a column label, the inverse of ParseYearLabel.
func YearLabel(prefix string, year int) string {
	return fmt.Sprintf("%s%04d", prefix, year)
}
