package resource

import (
	"fmt"
	"maps"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type localePrinter struct {
	printer *message.Printer
	known   map[string]struct{}
}

// Texts localizes talk text ids for one locale, falling back to the first
// locale in sorted order. Unknown ids read as themselves.
type Texts struct {
	tag   language.Tag
	chain []localePrinter
}

// NewTexts builds a catalog from per-locale message tables and picks the
// best match for locale.
func NewTexts(locale string, tables map[string]map[string]string) (*Texts, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("resource: no text tables")
	}
	locales := slices.Sorted(maps.Keys(tables))
	tags := make([]language.Tag, 0, len(locales))
	b := catalog.NewBuilder(catalog.Fallback(language.Und))
	for _, l := range locales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("resource: parse locale %q: %w", l, err)
		}
		for id, msg := range tables[l] {
			if err := b.SetString(tag, id, msg); err != nil {
				return nil, fmt.Errorf("resource: text %s/%s: %w", l, id, err)
			}
		}
		tags = append(tags, tag)
	}

	want, err := language.Parse(locale)
	if err != nil {
		want = tags[0]
	}
	_, i, _ := language.NewMatcher(tags).Match(want)

	order := []int{i}
	if i != 0 {
		order = append(order, 0)
	}
	t := &Texts{tag: tags[i]}
	for _, j := range order {
		t.chain = append(t.chain, localePrinter{
			printer: message.NewPrinter(tags[j], message.Catalog(b)),
			known:   keySet(tables[locales[j]]),
		})
	}
	return t, nil
}

func keySet(m map[string]string) map[string]struct{} {
	s := make(map[string]struct{}, len(m))
	for k := range m {
		s[k] = struct{}{}
	}
	return s
}

// Locale returns the locale in use.
func (t *Texts) Locale() language.Tag { return t.tag }

// Text returns the localized message for id.
func (t *Texts) Text(id string) string {
	for _, lp := range t.chain {
		if _, ok := lp.known[id]; ok {
			return lp.printer.Sprintf(id)
		}
	}
	return id
}
