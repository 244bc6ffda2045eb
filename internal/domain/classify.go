package domain

import (
	"math"
	"regexp"
	"strconv"
)

// Category identifies a crisis category for the ticker.
type Category string

const (
	CategoryAirlineDisaster Category = "airline_disaster"
	CategoryNaturalDisaster Category = "natural_disaster"
	CategoryWar             Category = "war"
	CategoryTerrorism       Category = "terrorism"
	CategoryActiveShooter   Category = "active_shooter"
	CategoryMassCasualty    Category = "mass_casualty"
	CategoryStockSwing      Category = "stock_swing"
)

// Categories lists every category in evaluation priority order.
var Categories = []Category{
	CategoryAirlineDisaster,
	CategoryNaturalDisaster,
	CategoryWar,
	CategoryTerrorism,
	CategoryActiveShooter,
	CategoryMassCasualty,
	CategoryStockSwing,
}

// Emoji returns the label prefix for the category.
func (c Category) Emoji() string {
	switch c {
	case CategoryAirlineDisaster:
		return "✈️"
	case CategoryNaturalDisaster:
		return "🌪️"
	case CategoryWar:
		return "🪖"
	case CategoryTerrorism:
		return "💥"
	case CategoryActiveShooter:
		return "🚨"
	case CategoryMassCasualty:
		return "🚑"
	case CategoryStockSwing:
		return "📈"
	default:
		return ""
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

var (
	aviationRe = regexp.MustCompile(`(airline|aircraft|flight|plane|jet|aviation|airport)\b`)
	crashRe    = regexp.MustCompile(`(crash|downed|mid-?air|collision|fell|plunged)`)
	severeRe   = regexp.MustCompile(`(fatal|fatalities|killed|dead|emergency landing)`)

	naturalRe = regexp.MustCompile(`(earthquake|tremor|tsunami|hurricane|cyclone|typhoon|tornado|wildfire|bushfire|wild fire|flood|landslide|mudslide|volcano|eruption|storm)\b`)
	warRe     = regexp.MustCompile(`(war|invasion|frontline|airstrike|strike|missile|shelling|bombardment|offensive|counteroffensive|ceasefire)\b`)
	terrorRe  = regexp.MustCompile(`(terror|terrorist|bomb|bombing|suicide bomber|ied|extremist attack)\b`)
	shooterRe = regexp.MustCompile(`(shooting|shooter|gunman|shots? fired|mass shooting)\b`)

	massCasualtyWordsRe = regexp.MustCompile(`(mass casualty|death toll|multiple fatalities)\b`)
	// casualtyCountRe matches "killed 12", "deaths: 40", "dead 3".
	casualtyCountRe = regexp.MustCompile(`(?:dead|killed|deaths|casualties|fatalities)\s*:?\s*(\d+)`)

	financeRe = regexp.MustCompile(`(stock|shares|market|price|ticker|exchange|nasdaq|nyse)\b`)
	// percentRe captures at most three digits so "1000%" reads as "000%".
	percentRe = regexp.MustCompile(`(-?\d{1,3})\s*%`)
)

// The predicates below expect text already lowercased, as produced by Event.Text.

// IsAirlineDisaster requires an aviation term plus a crash or severity term.
func IsAirlineDisaster(text string) bool {
	return aviationRe.MatchString(text) && (crashRe.MatchString(text) || severeRe.MatchString(text))
}

func IsNaturalDisaster(text string) bool { return naturalRe.MatchString(text) }

func IsWar(text string) bool { return warRe.MatchString(text) }

func IsTerrorism(text string) bool { return terrorRe.MatchString(text) }

func IsActiveShooter(text string) bool { return shooterRe.MatchString(text) }

// IsMassCasualty matches explicit mass-casualty wording, or any casualty count
// at or above threshold.
func IsMassCasualty(text string, threshold float64) bool {
	if massCasualtyWordsRe.MatchString(text) {
		return true
	}
	for _, m := range casualtyCountRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err == nil && n >= threshold {
			return true
		}
	}
	return false
}

// IsStockSwing requires a finance term and a percentage whose magnitude is at
// or above threshold.
func IsStockSwing(text string, threshold float64) bool {
	if !financeRe.MatchString(text) {
		return false
	}
	for _, m := range percentRe.FindAllStringSubmatch(text, -1) {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err == nil && math.Abs(pct) >= threshold {
			return true
		}
	}
	return false
}

// Classification is the ticker verdict for a single event.
type Classification struct {
	Label    string
	Category Category
}

// matchCategory evaluates the predicates in priority order and returns the
// first matching category.
func matchCategory(text string, th Thresholds) (Category, bool) {
	switch {
	case IsAirlineDisaster(text):
		return CategoryAirlineDisaster, true
	case IsNaturalDisaster(text):
		return CategoryNaturalDisaster, true
	case IsWar(text):
		return CategoryWar, true
	case IsTerrorism(text):
		return CategoryTerrorism, true
	case IsActiveShooter(text):
		return CategoryActiveShooter, true
	case IsMassCasualty(text, th.MassCasualty):
		return CategoryMassCasualty, true
	case IsStockSwing(text, th.StockPercent):
		return CategoryStockSwing, true
	default:
		return "", false
	}
}

// Classify returns the event's ticker label and category. Events carrying a
// precomputed label and category are returned as-is. The boolean is false
// when no category matches; that is a normal outcome, not an error.
func Classify(e Event, th Thresholds) (Classification, bool) {
	if e.Precomputed() {
		return Classification{Label: e.TickerLabel, Category: e.TickerCategory}, true
	}
	cat, ok := matchCategory(e.Text(), th)
	if !ok {
		return Classification{}, false
	}
	return Classification{Label: cat.Emoji() + " " + e.Title, Category: cat}, true
}
