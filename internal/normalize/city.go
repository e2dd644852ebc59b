package normalize

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

// cityAliases maps lower-cased spellings to the canonical city name.
var cityAliases = map[string]string{
	"台北市": "台北市", "台北": "台北市", "taipei": "台北市", "taipei city": "台北市",
	"新北市": "新北市", "新北": "新北市", "new taipei": "新北市", "new taipei city": "新北市",
	"基隆市": "基隆市", "基隆": "基隆市", "keelung": "基隆市",
	"桃園市": "桃園市", "桃園": "桃園市", "taoyuan": "桃園市",
	"新竹市": "新竹市", "新竹": "新竹市", "hsinchu": "新竹市", "hsinchu city": "新竹市",
	"新竹縣": "新竹縣", "hsinchu county": "新竹縣",
	"苗栗縣": "苗栗縣", "苗栗": "苗栗縣", "miaoli": "苗栗縣",
	"台中市": "台中市", "台中": "台中市", "taichung": "台中市",
	"彰化縣": "彰化縣", "彰化": "彰化縣", "changhua": "彰化縣",
	"南投縣": "南投縣", "南投": "南投縣", "nantou": "南投縣",
	"雲林縣": "雲林縣", "雲林": "雲林縣", "yunlin": "雲林縣",
	"嘉義市": "嘉義市", "嘉義": "嘉義市", "chiayi": "嘉義市",
	"嘉義縣": "嘉義縣", "chiayi county": "嘉義縣",
	"台南市": "台南市", "台南": "台南市", "tainan": "台南市",
	"高雄市": "高雄市", "高雄": "高雄市", "kaohsiung": "高雄市",
	"屏東縣": "屏東縣", "屏東": "屏東縣", "pingtung": "屏東縣",
	"宜蘭縣": "宜蘭縣", "宜蘭": "宜蘭縣", "yilan": "宜蘭縣",
	"花蓮縣": "花蓮縣", "花蓮": "花蓮縣", "hualien": "花蓮縣",
	"台東縣": "台東縣", "台東": "台東縣", "taitung": "台東縣",
	"澎湖縣": "澎湖縣", "澎湖": "澎湖縣", "penghu": "澎湖縣",
	"金門縣": "金門縣", "金門": "金門縣", "kinmen": "金門縣",
	"連江縣": "連江縣", "馬祖": "連江縣", "matsu": "連江縣",
	"新竹縣市": "新竹縣市", "嘉義縣市": "嘉義縣市",
}

// 104 codes Hsinchu and Chiayi city and county as one area.
var combinedAreas = map[string][]string{
	"新竹縣市": {"新竹市", "新竹縣"},
	"嘉義縣市": {"嘉義市", "嘉義縣"},
}

// 104 area codes at city granularity; district codes share the first 7 digits.
var areaCodes = map[string]string{
	"6001001000": "台北市",
	"6001002000": "新北市",
	"6001003000": "宜蘭縣",
	"6001004000": "基隆市",
	"6001005000": "桃園市",
	"6001006000": "新竹縣市",
	"6001007000": "苗栗縣",
	"6001008000": "台中市",
	"6001010000": "彰化縣",
	"6001011000": "南投縣",
	"6001012000": "雲林縣",
	"6001013000": "嘉義縣市",
	"6001014000": "台南市",
	"6001016000": "高雄市",
	"6001018000": "屏東縣",
	"6001019000": "台東縣",
	"6001020000": "花蓮縣",
	"6001021000": "澎湖縣",
	"6001022000": "金門縣",
	"6001023000": "連江縣",
}

var (
	areaCodeRe = regexp.MustCompile(`^600\d{7}$`)
	// longest alias first so "new taipei" wins over "taipei"
	aliasOrder = sortedAliases()
)

func sortedAliases() []string {
	keys := make([]string, 0, len(cityAliases))
	for k := range cityAliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// City maps free-text or coded location values to a canonical city name.
// Unmapped values are returned trimmed but otherwise unchanged.
func City(text string) string {
	t := cleanText(text)
	if t == "" {
		return ""
	}
	if areaCodeRe.MatchString(t) {
		if c, ok := areaCodes[t[:7]+"000"]; ok {
			return c
		}
		return t
	}

	lower := strings.ToLower(strings.ReplaceAll(t, "臺", "台"))
	for _, alias := range aliasOrder {
		if strings.HasPrefix(lower, alias) {
			return cityAliases[alias]
		}
	}
	// English addresses usually put the city last: "Xinyi Dist., Taipei City".
	for _, alias := range aliasOrder {
		if isASCII(alias) && len(alias) >= 5 && strings.Contains(lower, alias) {
			return cityAliases[alias]
		}
	}
	return t
}

// SameCity reports whether two location values name the same canonical city.
// A combined area such as 新竹縣市 is the same city as either of its parts.
func SameCity(a, b string) bool {
	ca, cb := City(a), City(b)
	if ca == "" || cb == "" {
		return false
	}
	if strings.EqualFold(ca, cb) {
		return true
	}
	return slices.Contains(combinedAreas[ca], cb) || slices.Contains(combinedAreas[cb], ca)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
