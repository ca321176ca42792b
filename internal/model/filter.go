package model

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// 模型输出中识别的过滤键（TMDB discover 参数名）
const (
	KeyGenres         = "with_genres"
	KeyKeywords       = "with_keywords"
	KeyReleaseYear    = "primary_release_year"
	KeyReleaseYearGTE = "primary_release_year.gte"
	KeyReleaseYearLTE = "primary_release_year.lte"
	KeyMinRating      = "vote_average.gte"
	KeyWatchProviders = "with_watch_providers"
	watchRegion       = "US"
	releaseDateGTEKey = "primary_release_date.gte"
	releaseDateLTEKey = "primary_release_date.lte"
	watchRegionKey    = "watch_region"
)

// ErrFilterParse 模型输出不是合法的过滤 JSON 对象
var ErrFilterParse = errors.New("filter output is not a JSON object")

var validate = validator.New()

// FilterSet 由提示词翻译出的结构化查询条件
type FilterSet struct {
	GenreIDs         []string `json:"with_genres,omitempty" validate:"dive,numeric"`
	KeywordIDs       []string `json:"with_keywords,omitempty" validate:"dive,numeric"`
	KeywordTerms     []string `json:"keyword_terms,omitempty"`
	ReleaseYear      string   `json:"primary_release_year,omitempty" validate:"omitempty,len=4,numeric"`
	ReleaseYearGTE   int      `json:"primary_release_year.gte,omitempty" validate:"omitempty,min=1870,max=2100"`
	ReleaseYearLTE   int      `json:"primary_release_year.lte,omitempty" validate:"omitempty,min=1870,max=2100"`
	MinRating        *float64 `json:"vote_average.gte,omitempty" validate:"omitempty,min=0,max=10"`
	WatchProviderIDs []string `json:"with_watch_providers,omitempty" validate:"dive,numeric"`
	Platforms        []string `json:"platforms,omitempty"`
}

// HasGenres 是否包含类型条件
func (f FilterSet) HasGenres() bool { return len(f.GenreIDs) > 0 }

// HasKeywords 是否包含关键词 ID 条件
func (f FilterSet) HasKeywords() bool { return len(f.KeywordIDs) > 0 }

// HasYear 是否包含上映年份条件
func (f FilterSet) HasYear() bool { return f.ReleaseYear != "" }

// IsEmpty 没有任何可用条件
func (f FilterSet) IsEmpty() bool {
	return !f.HasGenres() && !f.HasKeywords() && !f.HasYear() &&
		f.ReleaseYearGTE == 0 && f.ReleaseYearLTE == 0 && f.MinRating == nil &&
		len(f.WatchProviderIDs) == 0 && len(f.KeywordTerms) == 0
}

// Query 生成 discover 接口的查询参数（不含分页）
func (f FilterSet) Query() url.Values {
	q := url.Values{}
	if f.HasGenres() {
		q.Set(KeyGenres, strings.Join(f.GenreIDs, ","))
	}
	if f.HasKeywords() {
		q.Set(KeyKeywords, strings.Join(f.KeywordIDs, ","))
	}
	if f.HasYear() {
		q.Set(KeyReleaseYear, f.ReleaseYear)
	}
	if f.ReleaseYearGTE > 0 {
		q.Set(releaseDateGTEKey, fmt.Sprintf("%d-01-01", f.ReleaseYearGTE))
	}
	if f.ReleaseYearLTE > 0 {
		q.Set(releaseDateLTEKey, fmt.Sprintf("%d-12-31", f.ReleaseYearLTE))
	}
	if f.MinRating != nil {
		q.Set(KeyMinRating, strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	if len(f.WatchProviderIDs) > 0 {
		q.Set(KeyWatchProviders, strings.Join(f.WatchProviderIDs, "|"))
		q.Set(watchRegionKey, watchRegion)
	}
	return q
}

// Sanitize 校验各字段，丢弃不合法的字段，返回被丢弃的字段名
func (f *FilterSet) Sanitize() []string {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	dropped := make([]string, 0, len(verrs))
	seen := map[string]bool{}
	for _, fe := range verrs {
		name := fe.StructField()
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		f.clearField(name)
		dropped = append(dropped, name)
	}
	return dropped
}

func (f *FilterSet) clearField(name string) {
	switch name {
	case "GenreIDs":
		f.GenreIDs = nil
	case "KeywordIDs":
		f.KeywordIDs = nil
	case "ReleaseYear":
		f.ReleaseYear = ""
	case "ReleaseYearGTE":
		f.ReleaseYearGTE = 0
	case "ReleaseYearLTE":
		f.ReleaseYearLTE = 0
	case "MinRating":
		f.MinRating = nil
	case "WatchProviderIDs":
		f.WatchProviderIDs = nil
	}
}

// ParseFilterSet 严格按 JSON 解析模型输出，只接受已知键，未知键忽略。
// 允许外层包裹 ``` 代码块或少量说明文字，但对象本身必须是合法 JSON。
func ParseFilterSet(text string) (FilterSet, error) {
	var fs FilterSet

	obj, ok := extractJSONObject(text)
	if !ok {
		return fs, ErrFilterParse
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return fs, fmt.Errorf("%w: %v", ErrFilterParse, err)
	}

	var err error
	for key, val := range raw {
		switch key {
		case KeyGenres:
			fs.GenreIDs, err = flexStrings(val, ",")
		case KeyKeywords:
			// 模型给出的是关键词文本，ID 由关键词解析器补全
			fs.KeywordTerms, err = flexStrings(val, ",")
		case KeyReleaseYear:
			fs.ReleaseYear, err = flexString(val)
		case KeyReleaseYearGTE:
			fs.ReleaseYearGTE, err = flexInt(val)
		case KeyReleaseYearLTE:
			fs.ReleaseYearLTE, err = flexInt(val)
		case KeyMinRating:
			var v float64
			var set bool
			v, set, err = flexFloat(val)
			if set {
				fs.MinRating = &v
			}
		case KeyWatchProviders:
			fs.WatchProviderIDs, err = flexStrings(val, ",|")
		}
		if err != nil {
			return FilterSet{}, fmt.Errorf("%w: key %s: %v", ErrFilterParse, key, err)
		}
	}
	return fs, nil
}

// extractJSONObject 去掉代码块标记后截取第一个 { 到最后一个 }
func extractJSONObject(text string) (string, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// flexStrings 接受 "a,b"、数字、或字符串/数字数组
func flexStrings(raw json.RawMessage, seps string) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		items = []json.RawMessage{raw}
	}
	var out []string
	for _, item := range items {
		s, err := flexString(item)
		if err != nil {
			return nil, err
		}
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func flexString(raw json.RawMessage) (string, error) {
	if string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("unsupported value %s", string(raw))
}

func flexInt(raw json.RawMessage) (int, error) {
	s, err := flexString(raw)
	if err != nil || s == "" {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func flexFloat(raw json.RawMessage) (float64, bool, error) {
	s, err := flexString(raw)
	if err != nil || s == "" {
		return 0, false, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}
