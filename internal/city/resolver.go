// Package city validates user-supplied city names and maps localized names to
// the identifiers the weather provider understands.
package city

import "sort"

var builtinAliases = map[string]string{
	"北京":   "Beijing",
	"上海":   "Shanghai",
	"广州":   "Guangzhou",
	"深圳":   "Shenzhen",
	"天津":   "Tianjin",
	"重庆":   "Chongqing",
	"成都":   "Chengdu",
	"杭州":   "Hangzhou",
	"武汉":   "Wuhan",
	"西安":   "Xi'an",
	"苏州":   "Suzhou",
	"南京":   "Nanjing",
	"香港":   "Hong Kong",
	"澳门":   "Macao",
	"台北":   "Taipei",
	"大连":   "Dalian",
	"青岛":   "Qingdao",
	"厦门":   "Xiamen",
	"宁波":   "Ningbo",
	"哈尔滨":  "Harbin",
	"沈阳":   "Shenyang",
	"济南":   "Jinan",
	"郑州":   "Zhengzhou",
	"长沙":   "Changsha",
	"昆明":   "Kunming",
	"兰州":   "Lanzhou",
	"南昌":   "Nanchang",
	"合肥":   "Hefei",
	"太原":   "Taiyuan",
	"石家庄":  "Shijiazhuang",
	"呼和浩特": "Hohhot",
	"长春":   "Changchun",
	"福州":   "Fuzhou",
	"南宁":   "Nanning",
	"海口":   "Haikou",
	"银川":   "Yinchuan",
	"西宁":   "Xining",
	"乌鲁木齐": "Urumqi",
	"拉萨":   "Lhasa",
}

// Resolver maps localized city names to canonical provider ids. Lookups are
// exact and case-sensitive; unknown names resolve to themselves.
type Resolver struct {
	aliases map[string]string
}

type Alias struct {
	Name      string `json:"name"`
	Canonical string `json:"canonical"`
}

// NewResolver returns a resolver over the built-in table with extra entries
// layered on top.
func NewResolver(extra map[string]string) *Resolver {
	aliases := make(map[string]string, len(builtinAliases)+len(extra))
	for k, v := range builtinAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		if k != "" && v != "" {
			aliases[k] = v
		}
	}
	return &Resolver{aliases: aliases}
}

func (r *Resolver) Resolve(q Query) string {
	if id, ok := r.aliases[string(q)]; ok {
		return id
	}
	return string(q)
}

// Aliases returns the effective table sorted by canonical id.
func (r *Resolver) Aliases() []Alias {
	out := make([]Alias, 0, len(r.aliases))
	for name, canonical := range r.aliases {
		out = append(out, Alias{Name: name, Canonical: canonical})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Canonical == out[j].Canonical {
			return out[i].Name < out[j].Name
		}
		return out[i].Canonical < out[j].Canonical
	})
	return out
}
