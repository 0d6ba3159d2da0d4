package clinical

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
)

// RuleSpec is the declarative form of a recommendation rule, as written in
// code or in a clinical profile. Nil bounds are open.
type RuleSpec struct {
	Low      *float64 `yaml:"low,omitempty"`
	High     *float64 `yaml:"high,omitempty"`
	Symptoms []string `yaml:"symptoms"`
	Diet     string   `yaml:"diet"`
	Exercise string   `yaml:"exercise"`
}

type rule struct {
	low, high *float64
	symptoms  mapset.Set[string]
	rec       domain.Recommendation
}

func (r rule) inRange(level float64) bool {
	if r.low != nil && level < *r.low {
		return false
	}
	if r.high != nil && level > *r.high {
		return false
	}
	return true
}

// Catalog is an ordered, immutable rule table. The first rule whose range
// contains the level and whose symptom set equals the query set wins.
type Catalog struct {
	rules      []rule
	vocabulary []string
}

func bound(v float64) *float64 { return &v }

// DefaultRules is the clinic's standard diet and exercise table.
func DefaultRules() []RuleSpec {
	return []RuleSpec{
		{High: bound(70), Symptoms: []string{"Nöropati", "Polifaji", "Yorgunluk"}, Diet: "Dengeli Beslenme", Exercise: "Yok"},
		{Low: bound(70), High: bound(110), Symptoms: []string{"Yorgunluk", "Kilo Kaybı"}, Diet: "Az Şekerli Diyet", Exercise: "Yürüyüş"},
		{Low: bound(70), High: bound(110), Symptoms: []string{"Polifaji", "Polidipsi"}, Diet: "Dengeli Beslenme", Exercise: "Yürüyüş"},
		{Low: bound(110), High: bound(180), Symptoms: []string{"Bulanık Görme", "Nöropati"}, Diet: "Az Şekerli Diyet", Exercise: "Klinik Egzersiz"},
		{Low: bound(110), High: bound(180), Symptoms: []string{"Poliüri", "Polidipsi"}, Diet: "Şekersiz Diyet", Exercise: "Klinik Egzersiz"},
		{Low: bound(110), High: bound(180), Symptoms: []string{"Yorgunluk", "Nöropati", "Bulanık Görme"}, Diet: "Az Şekerli Diyet", Exercise: "Yürüyüş"},
		{Low: bound(180), Symptoms: []string{"Yaraların Yavaş İyileşmesi", "Polifaji", "Polidipsi"}, Diet: "Şekersiz Diyet", Exercise: "Klinik Egzersiz"},
		{Low: bound(180), Symptoms: []string{"Yaraların Yavaş İyileşmesi", "Kilo Kaybı"}, Diet: "Şekersiz Diyet", Exercise: "Yürüyüş"},
	}
}

// DefaultCatalog builds the catalog from DefaultRules.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates specs and freezes them into a Catalog.
func NewCatalog(specs []RuleSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("rule catalog is empty")
	}

	c := &Catalog{rules: make([]rule, 0, len(specs))}
	known := mapset.NewThreadUnsafeSet[string]()

	for i, spec := range specs {
		if spec.Low != nil && spec.High != nil && *spec.Low > *spec.High {
			return nil, fmt.Errorf("rule %d: low bound %v is above high bound %v", i+1, *spec.Low, *spec.High)
		}
		if spec.Diet == "" || spec.Exercise == "" {
			return nil, fmt.Errorf("rule %d: diet and exercise are required", i+1)
		}

		symptoms := mapset.NewThreadUnsafeSet[string]()
		for _, s := range spec.Symptoms {
			n := Normalize(s)
			if n == "" {
				continue
			}
			symptoms.Add(n)
			if known.Add(n) {
				c.vocabulary = append(c.vocabulary, s)
			}
		}
		if symptoms.Cardinality() == 0 {
			return nil, fmt.Errorf("rule %d: at least one symptom is required", i+1)
		}

		c.rules = append(c.rules, rule{
			low:      spec.Low,
			high:     spec.High,
			symptoms: symptoms,
			rec:      domain.Recommendation{Diet: spec.Diet, Exercise: spec.Exercise},
		})
	}

	return c, nil
}

// Resolve picks the recommendation for level and symptoms. The second result
// is false when no rule covers the combination.
func (c *Catalog) Resolve(level float64, symptoms []string) (domain.Recommendation, bool) {
	query := mapset.NewThreadUnsafeSet[string]()
	for _, s := range symptoms {
		if n := Normalize(s); n != "" {
			query.Add(n)
		}
	}

	for _, r := range c.rules {
		if !r.inRange(level) {
			continue
		}
		if r.symptoms.Equal(query) {
			return r.rec, true
		}
	}
	return domain.Recommendation{}, false
}

// Symptoms lists every symptom the catalog knows, in first-use order and original spelling.
func (c *Catalog) Symptoms() []string {
	out := make([]string, len(c.vocabulary))
	copy(out, c.vocabulary)
	return out
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}
