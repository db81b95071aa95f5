package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords 查詢時忽略的葡萄牙文虛詞（冠詞、介系詞、疑問詞與口語填充詞），以去除重音後的形式保存
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		o a os as um uma uns umas
		de do da dos das em no na nos nas com por para pra ao aos e
		que qual quais como onde quando
		quero queria preciso gostaria fazer faz tem tenho me
		receita receitas ola oi favor`) {
		stopWords[w] = struct{}{}
	}
}

// Normalize 去除前後空白、轉小寫並移除重音符號
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	// transformer 有內部狀態，每次呼叫建立新的，避免併發共用
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanQuery 將自由文字查詢整理成搜尋字串：正規化、去標點、移除停用詞。
// 全部都是停用詞時回傳正規化後的原查詢，非空輸入不會得到空字串。
func CleanQuery(s string) string {
	normalized := Normalize(s)
	if normalized == "" {
		return ""
	}

	tokens := Tokenize(normalized)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !IsStopWord(tok) {
			kept = append(kept, tok)
		}
	}

	if len(kept) == 0 {
		return strings.Join(strings.Fields(normalized), " ")
	}
	return strings.Join(kept, " ")
}

// Tokenize 以非字母數字字元切分已正規化的文字
func Tokenize(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsStopWord 判斷 token 是否為停用詞
func IsStopWord(token string) bool {
	_, ok := stopWords[Normalize(token)]
	return ok
}
