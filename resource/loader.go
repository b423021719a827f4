package resource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/kasuganosora/rpgscript/game/script"
	"github.com/kasuganosora/rpgscript/game/world"
	"gopkg.in/yaml.v3"
)

// ---- Data file structures ----

// RegionTemplate describes a region in regions.yaml.
type RegionTemplate struct {
	ID           common.RegionID `yaml:"id"`
	Name         string          `yaml:"name"`
	W            int             `yaml:"w"`
	H            int             `yaml:"h"`
	DungeonKinds []string        `yaml:"dungeon_kinds"`
	MaxFloors    int             `yaml:"max_floors"`
}

// Stock is a number of units of one item object.
type Stock struct {
	Item  string `yaml:"item"`
	Count uint32 `yaml:"count"`
}

// CharaTemplate describes a character in charas.yaml.
type CharaTemplate struct {
	Name   string           `yaml:"name"`
	Region common.RegionID  `yaml:"region"`
	Pos    common.Vec2d     `yaml:"pos"`
	Talk   *world.CharaTalk `yaml:"talk"`
	Items  []Stock          `yaml:"items"`
	Shop   []Stock          `yaml:"shop"`
}

// ResourceLoader reads and holds every data file of a game.
//
// Layout under DataPath:
//
//	items.yaml          item objects
//	regions.yaml        region templates
//	charas.yaml         characters
//	scripts/*.yaml      one script per file
//	text/<locale>.yaml  flat text id -> message tables
type ResourceLoader struct {
	DataPath string
	Locale   string
	Objects  *ObjectTable
	Regions  []*RegionTemplate
	Charas   []*CharaTemplate
	Scripts  script.MapStore
	Texts    *Texts
}

// NewLoader creates a ResourceLoader for the given data directory.
func NewLoader(dataPath, locale string) *ResourceLoader {
	return &ResourceLoader{
		DataPath: dataPath,
		Locale:   locale,
		Scripts:  make(script.MapStore),
	}
}

// Load reads all data files and cross-checks references between them.
func (rl *ResourceLoader) Load() error {
	loaders := []func() error{
		rl.loadObjects,
		rl.loadRegions,
		rl.loadScripts,
		rl.loadCharas,
		rl.loadTexts,
	}
	for _, fn := range loaders {
		if err := fn(); err != nil {
			return err
		}
	}
	return rl.check()
}

func (rl *ResourceLoader) path(file string) string {
	return filepath.Join(rl.DataPath, file)
}

func loadYAMLList[T any](path string) ([]*T, error) {
	var arr []*T
	if err := loadYAMLObject(path, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

func loadYAMLObject[T any](path string, out *T) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("resource: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("resource: parse %s: %w", path, err)
	}
	return nil
}

func (rl *ResourceLoader) loadObjects() error {
	objs, err := loadYAMLList[ItemObject](rl.path("items.yaml"))
	if err != nil {
		return err
	}
	rl.Objects, err = newObjectTable(objs)
	return err
}

func (rl *ResourceLoader) loadRegions() error {
	var err error
	rl.Regions, err = loadYAMLList[RegionTemplate](rl.path("regions.yaml"))
	if err != nil {
		return err
	}
	seen := make(map[common.RegionID]bool)
	for i, r := range rl.Regions {
		if r == nil || r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("resource: region %d: size must be positive", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("resource: duplicate region %d", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

func (rl *ResourceLoader) loadCharas() error {
	var err error
	rl.Charas, err = loadYAMLList[CharaTemplate](rl.path("charas.yaml"))
	return err
}

var scriptFileRegex = regexp.MustCompile(`^([A-Za-z0-9_\-]+)\.ya?ml$`)

func (rl *ResourceLoader) loadScripts() error {
	dir := rl.path("scripts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("resource: readdir %s: %w", dir, err)
	}
	for _, e := range entries {
		m := scriptFileRegex.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		s := &script.Script{}
		if err := loadYAMLObject(filepath.Join(dir, e.Name()), s); err != nil {
			return err
		}
		if s.ID == "" {
			s.ID = m[1]
		}
		if s.ID != m[1] {
			return fmt.Errorf("resource: script %s: id %q does not match file name", e.Name(), s.ID)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("resource: script %s: %w", s.ID, err)
		}
		rl.Scripts[s.ID] = s
	}
	return nil
}

func (rl *ResourceLoader) loadTexts() error {
	dir := rl.path("text")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("resource: readdir %s: %w", dir, err)
	}
	tables := make(map[string]map[string]string)
	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		table := make(map[string]string)
		if err := loadYAMLObject(filepath.Join(dir, name), &table); err != nil {
			return err
		}
		tables[strings.TrimSuffix(name, ext)] = table
	}
	rl.Texts, err = NewTexts(rl.Locale, tables)
	return err
}

func (rl *ResourceLoader) check() error {
	regions := make(map[common.RegionID]*RegionTemplate, len(rl.Regions))
	for _, r := range rl.Regions {
		regions[r.ID] = r
	}
	var errs []error
	for i, c := range rl.Charas {
		if c == nil {
			errs = append(errs, fmt.Errorf("chara %d is null", i))
			continue
		}
		r, ok := regions[c.Region]
		if !ok {
			errs = append(errs, fmt.Errorf("chara %q: unknown region %d", c.Name, c.Region))
		} else if c.Pos.X < 0 || c.Pos.Y < 0 || c.Pos.X >= r.W || c.Pos.Y >= r.H {
			errs = append(errs, fmt.Errorf("chara %q: position %s outside region", c.Name, c.Pos))
		}
		if c.Talk != nil {
			s, ok := rl.Scripts.Script(c.Talk.Script)
			if !ok {
				errs = append(errs, fmt.Errorf("chara %q: unknown script %q", c.Name, c.Talk.Script))
			} else if c.Talk.Section != "" && !s.HasSection(c.Talk.Section) {
				errs = append(errs, fmt.Errorf("chara %q: script %q has no section %q", c.Name, s.ID, c.Talk.Section))
			}
		}
		for _, st := range slices.Concat(c.Items, c.Shop) {
			if _, ok := rl.Objects.IdxOf(st.Item); !ok {
				errs = append(errs, fmt.Errorf("chara %q: unknown item %q", c.Name, st.Item))
			}
			if st.Count == 0 {
				errs = append(errs, fmt.Errorf("chara %q: item %q has zero count", c.Name, st.Item))
			}
		}
	}
	for id, s := range rl.Scripts {
		for _, sec := range s.Sections {
			for _, ins := range sec {
				if ins.Op != script.OpRemoveItem {
					continue
				}
				if _, ok := rl.Objects.IdxOf(ins.Name); !ok {
					errs = append(errs, fmt.Errorf("script %q: remove_item of unknown item %q", id, ins.Name))
				}
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("resource: %w", err)
	}
	return nil
}
