package calc

import (
	"time"

	"golang.org/x/text/language"
)

// Spanish comes first so unmatched or empty locales fall back to it.
var supportedLocales = []language.Tag{language.Spanish, language.English}

var localeMatcher = language.NewMatcher(supportedLocales)

// Indexed by time.Weekday, Sunday first.
var shortDayNames = [][7]string{
	{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"},
	{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
}

// DayName returns the short weekday name of t for the given BCP 47 locale.
func DayName(t time.Time, locale string) string {
	return shortDayNames[matchLocale(locale)][t.Weekday()]
}

// SupportedLocale reports the locale tag DayName will actually use for locale.
func SupportedLocale(locale string) language.Tag {
	return supportedLocales[matchLocale(locale)]
}

func matchLocale(locale string) int {
	tag, err := language.Parse(locale)
	if err != nil {
		return 0
	}
	_, index, confidence := localeMatcher.Match(tag)
	if confidence == language.No {
		return 0
	}
	return index
}
