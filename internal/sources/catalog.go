package sources

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one configured external news provider.
type Source struct {
	ID      int64  `yaml:"id" json:"id"`
	NameEn  string `yaml:"name_en" json:"name_en"`
	NameZh  string `yaml:"name_zh" json:"name_zh"`
	FeedURL string `yaml:"feed_url" json:"feed_url,omitempty"`
}

// catalog is the built-in provider list. The backend identifies sources by
// these IDs; the client only needs them for display-name resolution and for
// feed previews.
var catalog = []Source{
	{ID: 1, NameEn: "Xinhua News Agency", NameZh: "新华社", FeedURL: "http://www.xinhuanet.com/english/rss/worldrss.xml"},
	{ID: 2, NameEn: "People's Daily", NameZh: "人民日报", FeedURL: "http://en.people.cn/rss/90777.xml"},
	{ID: 3, NameEn: "China Daily", NameZh: "中国日报", FeedURL: "https://www.chinadaily.com.cn/rss/world_rss.xml"},
	{ID: 4, NameEn: "Caixin Global", NameZh: "财新", FeedURL: "https://www.caixinglobal.com/rss/all.xml"},
	{ID: 5, NameEn: "South China Morning Post", NameZh: "南华早报", FeedURL: "https://www.scmp.com/rss/91/feed"},
	{ID: 6, NameEn: "Reuters China", NameZh: "路透中国", FeedURL: "https://www.reutersagency.com/feed/?best-regions=asia"},
}

// All returns the built-in catalog.
func All() []Source {
	out := make([]Source, len(catalog))
	copy(out, catalog)
	return out
}

// ByID looks up a source by its catalog ID.
func ByID(id int64) (Source, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// ByName looks up a source by English or Chinese name, case-insensitively.
func ByName(name string) (Source, bool) {
	for _, s := range catalog {
		if strings.EqualFold(s.NameEn, name) || s.NameZh == name {
			return s, true
		}
	}
	return Source{}, false
}

// NameFor resolves a source ID to its English display name.
// Returns "" for IDs not in the catalog.
func NameFor(id int64) string {
	if s, ok := ByID(id); ok {
		return s.NameEn
	}
	return ""
}

// LoadCatalog merges a YAML override file into the built-in catalog. Entries
// with a known ID replace the built-in source; new IDs are appended.
func LoadCatalog(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var overrides []Source
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	merged := All()
	for _, o := range overrides {
		replaced := false
		for i, s := range merged {
			if s.ID == o.ID {
				merged[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, o)
		}
	}
	return merged, nil
}
