package clinical

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	"github.com/vladimiradmaev/glucose-guide/internal/utils"
)

// Profile bundles the window table and rule catalog a deployment runs with.
type Profile struct {
	Windows *WindowTable
	Catalog *Catalog
}

// DefaultProfile is the built-in clinic profile.
func DefaultProfile() Profile {
	return Profile{Windows: DefaultWindowTable(), Catalog: DefaultCatalog()}
}

type windowDoc struct {
	Slot  string `yaml:"slot"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type profileDoc struct {
	Windows []windowDoc `yaml:"windows"`
	Rules   []RuleSpec  `yaml:"rules"`
}

// LoadProfile reads a YAML profile. Sections left out keep their defaults.
//
//	windows:
//	  - {slot: morning, start: "07:00", end: "08:59"}
//	rules:
//	  - {high: 70, symptoms: [Nöropati, Polifaji, Yorgunluk], diet: Dengeli Beslenme, exercise: Yok}
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read clinical profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile document.
func ParseProfile(data []byte) (Profile, error) {
	var doc profileDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("failed to parse clinical profile: %w", err)
	}

	profile := DefaultProfile()

	if len(doc.Windows) > 0 {
		windows := make([]Window, 0, len(doc.Windows))
		for _, w := range doc.Windows {
			start, err := utils.TimeToMinutes(w.Start)
			if err != nil {
				return Profile{}, fmt.Errorf("window %s: %w", w.Slot, err)
			}
			end, err := utils.TimeToMinutes(w.End)
			if err != nil {
				return Profile{}, fmt.Errorf("window %s: %w", w.Slot, err)
			}
			windows = append(windows, Window{Slot: domain.WindowSlot(w.Slot), Start: start, End: end})
		}
		table, err := NewWindowTable(windows)
		if err != nil {
			return Profile{}, err
		}
		profile.Windows = table
	}

	if len(doc.Rules) > 0 {
		catalog, err := NewCatalog(doc.Rules)
		if err != nil {
			return Profile{}, err
		}
		profile.Catalog = catalog
	}

	return profile, nil
}
