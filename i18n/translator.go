package i18n

import "strings"

// Translator retrieves localized messages for error codes.
// data provides optional values substituted into "{name}" placeholders (for
// example "token" or "list").
type Translator interface {
	Message(code string, data map[string]string) string
}

var catalog = map[string]map[string]string{
	"en": {
		// schema construction
		"nil_node":          "node is nil",
		"empty_name":        "node name is empty",
		"bad_token":         "malformed capture token {name}",
		"duplicate_name":    "node name {name} declared twice",
		"multiple_captures": "more than one capture token on the same level",
		"missing_list":      "reference attribute requires a list name",
		"missing_key":       "attribute requires a key generator",
		"bad_template":      "malformed key template",
		"unbound_token":     "token {token} is not captured by any enclosing node",
		"bad_expr":          "expression does not compile",
		"too_deep":          "schema nesting exceeds {max} levels",
		"bad_field":         "unknown resource field {name}",
		"bad_kind":          "unknown node kind {name}",
		"bad_option":        "option {name} does not apply to kind {kind}",
		"bad_version":       "unsupported schema file version {name}",
		"bad_nulls":         "nulls must be skip or visit, got {name}",
		// evaluation
		"invalid_type":    "invalid type",
		"invalid_format":  "invalid format",
		"generator_error": "generator failed",
		"depth_exceeded":  "max depth exceeded",
		"info_encoding":   "info is not JSON encodable",
		// decoding
		"parse_error":   "parse error",
		"duplicate_key": "duplicate key",
		"truncated":     "truncated",
	},
	"ja": {
		"nil_node":          "ノードが nil です",
		"empty_name":        "ノード名が空です",
		"bad_token":         "キャプチャトークン {name} が不正です",
		"duplicate_name":    "ノード名 {name} が重複しています",
		"multiple_captures": "同じ階層に複数のキャプチャトークンがあります",
		"missing_list":      "参照属性にはリスト名が必要です",
		"missing_key":       "属性にはキー生成器が必要です",
		"bad_template":      "キーテンプレートが不正です",
		"unbound_token":     "トークン {token} は上位ノードでキャプチャされていません",
		"bad_expr":          "式をコンパイルできません",
		"too_deep":          "スキーマの階層が {max} を超えています",
		"bad_field":         "未知のリソースフィールド {name} です",
		"bad_kind":          "未知のノード種別 {name} です",
		"bad_option":        "オプション {name} は種別 {kind} では使えません",
		"bad_version":       "スキーマファイルのバージョン {name} には対応していません",
		"bad_nulls":         "nulls には skip か visit を指定してください ({name})",
		"invalid_type":      "型が不正です",
		"invalid_format":    "形式が不正です",
		"generator_error":   "生成器が失敗しました",
		"depth_exceeded":    "最大深さを超えました",
		"info_encoding":     "info を JSON にエンコードできません",
		"parse_error":       "解析エラー",
		"duplicate_key":     "キーが重複しています",
		"truncated":         "打ち切られました",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := catalog[t.lang][code]
	if !ok {
		if msg, ok = catalog["en"][code]; !ok {
			return code
		}
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := catalog[lang]; !ok {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
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
