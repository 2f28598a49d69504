package locale

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
)

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"de_de": monday.LocaleDeDE,
	"de_at": monday.LocaleDeDE,
	"de_ch": monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_fr": monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"es_es": monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"it_it": monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_pt": monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"nl_nl": monday.LocaleNlNL,
	"nl_be": monday.LocaleNlBE,
	"ru":    monday.LocaleRuRU,
	"pl":    monday.LocalePlPL,
	"cs":    monday.LocaleCsCZ,
	"da":    monday.LocaleDaDK,
	"fi":    monday.LocaleFiFI,
	"sv":    monday.LocaleSvSE,
	"nb":    monday.LocaleNbNO,
	"ja":    monday.LocaleJaJP,
	"zh":    monday.LocaleZhCN,
	"zh_tw": monday.LocaleZhTW,
	"ko":    monday.LocaleKoKR,
	"tr":    monday.LocaleTrTR,
}

// MondayLocale maps a locale name ("de_DE", "de-DE", "de") to the monday
// locale used for month and weekday names, defaulting to en_US.
func MondayLocale(locale string) monday.Locale {
	key := strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
	if loc, ok := mondayLocales[key]; ok {
		return loc
	}
	if lang, _, found := strings.Cut(key, "_"); found {
		if loc, ok := mondayLocales[lang]; ok {
			return loc
		}
	}
	return monday.LocaleEnUS
}

func dateLayout(loc monday.Locale) string {
	switch loc {
	case monday.LocaleEnUS:
		return "Jan 2, 2006"
	case monday.LocaleDeDE:
		return "2. January 2006"
	case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
		return "2006年1月2日"
	case monday.LocaleKoKR:
		return "2006년 1월 2일"
	}
	return "2 January 2006"
}

func timeLayout(loc monday.Locale) string {
	if loc == monday.LocaleEnUS {
		return "3:04 PM"
	}
	return "15:04"
}

// FormatDate formats a date-like value (see ParseTime) for locale. Values
// that are not dates format as "".
func FormatDate(v any, locale string) string {
	t, ok := ParseTime(v)
	if !ok {
		return ""
	}
	loc := MondayLocale(locale)
	return monday.Format(t, dateLayout(loc), loc)
}

// FormatDateTime is FormatDate followed by the time of day.
func FormatDateTime(v any, locale string) string {
	t, ok := ParseTime(v)
	if !ok {
		return ""
	}
	loc := MondayLocale(locale)
	return monday.Format(t, dateLayout(loc)+" "+timeLayout(loc), loc)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime accepts time.Time, *time.Time, unix seconds and strings in
// RFC 3339, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD" form.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Age returns the number of whole years between birth and now.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}
