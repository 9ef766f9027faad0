package i18n

import "golang.org/x/text/language"

// Translator retrieves localized messages for Issue codes.
// data provides the values embedded in the message: "expected" names what the
// decoder wanted (for example "a string") and "received" is the rendered input.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	exp, got, field := data["expected"], data["received"], data["field"]
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_type", "invalid_format", "invalid_union":
			return exp + "を期待しましたが `" + got + "` を受け取りました"
		case "required":
			return "レスポンスにフィールド '" + field + "' がありません"
		}
	default: // "en"
		switch code {
		case "invalid_type", "invalid_format", "invalid_union":
			return "expected " + exp + " but received `" + got + "`"
		case "required":
			return "response was missing field '" + field + "'"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

var (
	supported = []language.Tag{language.English, language.Japanese}
	matcher   = language.NewMatcher(supported)
)

// Match returns the supported language closest to a BCP 47 tag such as
// "ja-JP" or "en-US". Unparsable tags fall back to "en".
func Match(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return "en"
	}
	_, i, conf := matcher.Match(t)
	if conf == language.No {
		return "en"
	}
	base, _ := supported[i].Base()
	return base.String()
}

// SetLanguage switches the built-in Translator language. Tags are matched
// with Match, so "ja-JP" selects Japanese.
func SetLanguage(lang string) {
	currentTranslator = dictTranslator{lang: Match(lang)}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
