package i18n

import "strings"

// The deployment ships two locales; everything else falls back to the default.
const (
	LocaleEN = "en"
	LocaleDE = "de"

	DefaultLocale = LocaleEN
)

var supported = map[string]struct{}{
	LocaleEN: {},
	LocaleDE: {},
}

func IsSupported(locale string) bool {
	_, ok := supported[locale]
	return ok
}

// Normalize maps a requested locale tag onto a supported one.
func Normalize(locale string) string {
	if IsSupported(locale) {
		return locale
	}
	return DefaultLocale
}

// FromPath extracts the leading locale segment of a request path.
// "/de/auth/login" -> "de"; "/fr/page" and "/page" -> the default locale.
func FromPath(path string) string {
	seg := firstSegment(path)

	if IsSupported(seg) {
		return seg
	}
	return DefaultLocale
}

// StripLocale removes a recognized locale prefix, yielding the canonical path.
// "/en/members/x" -> "/members/x"; "/en" -> "/"; "/members" is left alone.
func StripLocale(path string) string {
	seg := firstSegment(path)

	if !IsSupported(seg) {
		return path
	}

	rest := strings.TrimPrefix(path, "/"+seg)

	if rest == "" {
		return "/"
	}
	return rest
}

// HasLocalePrefix reports whether the path already carries a supported locale.
func HasLocalePrefix(path string) bool {
	return IsSupported(firstSegment(path))
}

func firstSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")

	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}
