// Package classifier decides what a single line of OCR or markdown text
// means for the scanner: a year marker, a category label, an amount, or
// noise. Rules are applied in that order and the first match wins.
package classifier

import (
	"strconv"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

type Kind int

const (
	KindNoise Kind = iota
	KindYear
	KindCategory
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindYear:
		return "year"
	case KindCategory:
		return "category"
	case KindValue:
		return "value"
	default:
		return "noise"
	}
}

// Result is the classification of one line. Only the fields belonging to
// Kind are set.
type Result struct {
	Kind     Kind
	Year     int
	Category string
	Value    int64
	Values   []int64 // every amount on a wide row
	Keyword  string  // vocabulary entry that made the line a category
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	profile  extract.Profile
	matcher  *ahocorasick.Matcher
	keywords []string
}

// New builds the keyword automaton for the profile's vocabulary.
func New(profile extract.Profile) (*Classifier, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{profile: profile}

	// Keywords are matched against an upper-cased, space-free line so OCR
	// spacing inside Hangul words does not break the lookup.
	for _, kw := range profile.Keywords {
		kw = compact(kw)
		if kw == "" {
			continue
		}
		c.keywords = append(c.keywords, kw)
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c, nil
}

// Profile returns the profile the classifier was built for.
func (c *Classifier) Profile() extract.Profile {
	return c.profile
}

func (c *Classifier) Classify(line string) Result {
	text := strings.TrimSpace(line)
	if text == "" {
		return Result{Kind: KindNoise}
	}

	if m := c.profile.YearPattern.FindStringSubmatch(text); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			return Result{Kind: KindYear, Year: year}
		}
	}

	if kw, ok := c.category(text); ok {
		return Result{Kind: KindCategory, Category: text, Keyword: kw}
	}

	// A wide row carries one amount per year column. Fewer amounts than
	// that fall through to the single-value rule below.
	if c.profile.Wide() {
		if values := Amounts(text); len(values) >= c.profile.MinValues {
			return Result{Kind: KindValue, Value: values[0], Values: values}
		}
	}

	if m := c.profile.ValuePattern.FindStringSubmatch(text); m != nil {
		raw := m[0]
		if len(m) > 1 {
			raw = m[1]
		}
		if v, err := ParseAmount(raw); err == nil {
			return Result{Kind: KindValue, Value: v}
		}
	}

	return Result{Kind: KindNoise}
}

func (c *Classifier) category(text string) (string, bool) {
	if c.matcher != nil {
		if hits := c.matcher.MatchThreadSafe([]byte(compact(text))); len(hits) > 0 {
			best := hits[0]
			for _, h := range hits[1:] {
				// prefer the longest keyword, e.g. 특별인부 over 전공 in 특별인부전공
				if len(c.keywords[h]) > len(c.keywords[best]) {
					best = h
				}
			}
			return c.keywords[best], true
		}
	}
	for _, p := range c.profile.CategoryPatterns {
		if m := p.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// ParseAmount converts "1,234" or "1,234원" into 1234.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "원")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	return strconv.ParseInt(s, 10, 64)
}

// Amounts returns every number on a line, in order.
func Amounts(text string) []int64 {
	matches := extract.AnyNumber.FindAllString(text, -1)
	values := make([]int64, 0, len(matches))
	for _, m := range matches {
		if v, err := ParseAmount(m); err == nil {
			values = append(values, v)
		}
	}
	return values
}

func compact(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
