package service

import (
	"regexp"
	"strings"
)

// WatchProviderMap TMDB watch provider id -> 平台名
var WatchProviderMap = map[string]string{
	"8":   "Netflix",
	"9":   "Amazon Prime Video",
	"15":  "Hulu",
	"384": "HBO Max",
	"337": "Disney Plus",
	"531": "Peacock",
	"350": "Paramount Plus",
	"387": "Apple TV Plus",
}

// platformMention 提示词中的平台说法 -> 规范名；长的说法排在前面
// 单独出现会有歧义的名字（max、apple、amazon、paramount）需要前面带 "on"
type platformMention struct {
	alias     string
	canonical string
	re        *regexp.Regexp
}

var platformMentions = buildPlatformMentions([][2]string{
	{"amazon prime video", "Amazon Prime Video"},
	{"prime video", "Amazon Prime Video"},
	{"on amazon", "Amazon Prime Video"},
	{"disney plus", "Disney Plus"},
	{"disney+", "Disney Plus"},
	{"hbo max", "Max"},
	{"hbo", "Max"},
	{"on max", "Max"},
	{"apple tv+", "Apple TV+"},
	{"apple tv", "Apple TV+"},
	{"on apple", "Apple TV+"},
	{"paramount plus", "Paramount+"},
	{"paramount+", "Paramount+"},
	{"on paramount", "Paramount+"},
	{"amc+", "AMC+"},
	{"amc", "AMC+"},
	{"pluto tv", "Pluto TV"},
	{"netflix", "Netflix"},
	{"hulu", "Hulu"},
	{"peacock", "Peacock"},
	{"starz", "Starz"},
	{"showtime", "Showtime"},
	{"crunchyroll", "Crunchyroll"},
	{"tubi", "Tubi"},
	{"freevee", "Freevee"},
})

func buildPlatformMentions(pairs [][2]string) []platformMention {
	out := make([]platformMention, 0, len(pairs))
	for _, p := range pairs {
		// 按整词匹配，"max" 不应命中 "maximum"
		pattern := `(^|[^a-z0-9])` + regexp.QuoteMeta(p[0])
		if !strings.HasSuffix(p[0], "+") {
			pattern += `($|[^a-z0-9+])`
		}
		out = append(out, platformMention{alias: p[0], canonical: p[1], re: regexp.MustCompile(pattern)})
	}
	return out
}

// DetectPlatforms 找出提示词里提到的流媒体平台，返回去重后的规范名
func DetectPlatforms(prompt string) []string {
	text := strings.ToLower(prompt)
	var out []string
	seen := map[string]bool{}
	for _, m := range platformMentions {
		if seen[m.canonical] || !m.re.MatchString(text) {
			continue
		}
		seen[m.canonical] = true
		out = append(out, m.canonical)
	}
	return out
}

// PlatformNames 将 provider id 映射为平台名，未知 id 忽略
func PlatformNames(ids []string) []string {
	var names []string
	for _, id := range ids {
		if name, ok := WatchProviderMap[strings.TrimSpace(id)]; ok {
			names = append(names, name)
		}
	}
	return names
}

var platformNoise = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizePlatform 统一大小写与 "+"/"Plus" 写法，"HBO Max" 视为 "Max"
func NormalizePlatform(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "+", " plus")
	s = strings.TrimSpace(platformNoise.ReplaceAllString(s, " "))
	if s == "hbo max" || s == "hbo" {
		s = "max"
	}
	return s
}

// platformMatches 服务名与请求平台一致，或以其为前缀（如 "Peacock Premium"）
func platformMatches(service, wanted string) bool {
	s, w := NormalizePlatform(service), NormalizePlatform(wanted)
	if s == "" || w == "" {
		return false
	}
	return s == w || strings.HasPrefix(s, w+" ")
}

// mergePlatforms 合并并按规范形式去重，保留首次出现的写法
func mergePlatforms(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, p := range list {
			key := NormalizePlatform(p)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	return out
}
