package i18n

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type Language string

const (
	English Language = "en"
	Russian Language = "ru"
	Uzbek   Language = "uz"
	Chinese Language = "cn"

	DefaultLanguage = English
)

var supported = []Language{English, Russian, Uzbek, Chinese}

func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

func (l Language) Valid() bool {
	for _, s := range supported {
		if l == s {
			return true
		}
	}
	return false
}

// Tag returns the BCP 47 locale used for number formatting.
func (l Language) Tag() language.Tag {
	switch l {
	case Russian:
		return language.MustParse("ru-RU")
	case Uzbek:
		return language.MustParse("uz-UZ")
	case Chinese:
		return language.MustParse("zh-CN")
	default:
		return language.AmericanEnglish
	}
}

// ParseLanguage maps a Telegram language_code (or one of our own codes) onto
// a supported language. Anything unrecognised becomes English.
func ParseLanguage(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	if Language(code).Valid() {
		return Language(code)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()
	switch base.String() {
	case "zh":
		return Chinese
	case "ru":
		return Russian
	case "uz":
		return Uzbek
	default:
		return English
	}
}

// Text is a localized string as delivered by the backend.
type Text map[Language]string

func (t Text) Clone() Text {
	if t == nil {
		return nil
	}
	out := make(Text, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Translate resolves t for lang, falling back to the default language and
// then to the first non-empty value (supported order, then by key).
func Translate(t Text, lang Language) string {
	if len(t) == 0 {
		return ""
	}
	if v := t[lang]; v != "" {
		return v
	}
	if v := t[DefaultLanguage]; v != "" {
		return v
	}
	for _, l := range supported {
		if v := t[l]; v != "" {
			return v
		}
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := t[Language(k)]; v != "" {
			return v
		}
	}
	return ""
}

// FormatAmount renders d with the digit grouping of lang's locale.
func FormatAmount(lang Language, d decimal.Decimal) string {
	p := message.NewPrinter(lang.Tag())
	if d.IsInteger() {
		return p.Sprint(number.Decimal(d.IntPart()))
	}
	return p.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(3)))
}
