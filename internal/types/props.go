package types

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Props is the type-specific content of a section. Every known section type
// has its own variant; GenericProps carries anything else. Keys a variant
// does not define are kept in its Extra map and written back on export.
type Props interface {
	// SectionType reports which section type the props belong to
	SectionType() SectionType
	// Clone returns a deep copy
	Clone() Props
}

// Colors is shared by every typed variant.
type Colors struct {
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

// NavLink is a labelled link used by headers and footers.
type NavLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// LinkGroup is a titled column of footer links.
type LinkGroup struct {
	Title string    `json:"title"`
	Links []NavLink `json:"links"`
}

// SocialLink points at a social profile.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
}

// HeaderProps configures a navigation header.
type HeaderProps struct {
	Title           string    `json:"title"`
	LogoURL         string    `json:"logoUrl"`
	NavigationItems []NavLink `json:"navigationItems,omitempty"`
	Colors

	Extra map[string]any `json:"-"`
}

// HeroProps configures a large banner with a call to action.
type HeroProps struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle,omitempty"`
	Description     string `json:"description"`
	ButtonText      string `json:"buttonText"`
	ButtonURL       string `json:"buttonUrl"`
	ImageURL        string `json:"imageUrl"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	Colors

	Extra map[string]any `json:"-"`
}

// ContentProps configures a text block with an optional image.
type ContentProps struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	ImageURL      string `json:"imageUrl"`
	ImagePosition string `json:"imagePosition"`
	Colors

	Extra map[string]any `json:"-"`
}

// FooterProps configures the page footer.
type FooterProps struct {
	LinkGroups  []LinkGroup  `json:"linkGroups,omitempty"`
	SocialLinks []SocialLink `json:"socialLinks,omitempty"`
	Copyright   string       `json:"copyright"`
	Colors

	Extra map[string]any `json:"-"`
}

// GenericProps holds the props of a section type without a typed variant.
type GenericProps struct {
	Type   SectionType
	Values map[string]any
}

func (HeaderProps) SectionType() SectionType  { return SectionTypeHeader }
func (HeroProps) SectionType() SectionType    { return SectionTypeHero }
func (ContentProps) SectionType() SectionType { return SectionTypeContent }
func (FooterProps) SectionType() SectionType  { return SectionTypeFooter }
func (g GenericProps) SectionType() SectionType {
	return g.Type
}

// Clone returns a deep copy.
func (p HeaderProps) Clone() Props {
	p.NavigationItems = append([]NavLink(nil), p.NavigationItems...)
	p.Extra = cloneExtra(p.Extra)

	return p
}

// Clone returns a deep copy.
func (p HeroProps) Clone() Props {
	p.Extra = cloneExtra(p.Extra)

	return p
}

// Clone returns a deep copy.
func (p ContentProps) Clone() Props {
	p.Extra = cloneExtra(p.Extra)

	return p
}

// Clone returns a deep copy.
func (p FooterProps) Clone() Props {
	if p.LinkGroups != nil {
		groups := make([]LinkGroup, len(p.LinkGroups))
		for i, g := range p.LinkGroups {
			groups[i] = LinkGroup{Title: g.Title, Links: append([]NavLink(nil), g.Links...)}
		}
		p.LinkGroups = groups
	}
	p.SocialLinks = append([]SocialLink(nil), p.SocialLinks...)
	p.Extra = cloneExtra(p.Extra)

	return p
}

// The MarshalJSON methods write the defined fields followed by any extra
// keys. A plain copy of the type drops the method and avoids recursion.

func (p HeaderProps) MarshalJSON() ([]byte, error) {
	type plain HeaderProps
	return marshalWithExtra(plain(p), p.Extra)
}

func (p HeroProps) MarshalJSON() ([]byte, error) {
	type plain HeroProps
	return marshalWithExtra(plain(p), p.Extra)
}

func (p ContentProps) MarshalJSON() ([]byte, error) {
	type plain ContentProps
	return marshalWithExtra(plain(p), p.Extra)
}

func (p FooterProps) MarshalJSON() ([]byte, error) {
	type plain FooterProps
	return marshalWithExtra(plain(p), p.Extra)
}

func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, defined := fields[k]; !defined {
			fields[k] = val
		}
	}

	return json.Marshal(fields)
}

func cloneExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out, _ := deepCopy(extra).(map[string]any)

	return out
}

// Clone returns a deep copy.
func (g GenericProps) Clone() Props {
	values, _ := deepCopy(g.Values).(map[string]any)

	return GenericProps{Type: g.Type, Values: values}
}

// MarshalJSON encodes generic props as their plain values.
func (g GenericProps) MarshalJSON() ([]byte, error) {
	if g.Values == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(g.Values)
}

// Keys returns the sorted keys of the generic props.
func (g GenericProps) Keys() []string {
	keys := make([]string, 0, len(g.Values))
	for k := range g.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// NewProps returns the zero variant for t.
func NewProps(t SectionType) Props {
	switch t {
	case SectionTypeHeader:
		return HeaderProps{}
	case SectionTypeHero:
		return HeroProps{}
	case SectionTypeContent:
		return ContentProps{}
	case SectionTypeFooter:
		return FooterProps{}
	default:
		return GenericProps{Type: t, Values: map[string]any{}}
	}
}

// DecodeProps builds the variant for t from a plain props object. Keys the
// variant does not define go to its Extra map; a value of the wrong shape
// for a defined key is an error.
func DecodeProps(t SectionType, raw map[string]any) (Props, error) {
	if !t.Known() {
		values, _ := deepCopy(raw).(map[string]any)
		if values == nil {
			values = map[string]any{}
		}

		return GenericProps{Type: t, Values: values}, nil
	}

	raw = resolveAliases(t, raw)
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode %s props: %w", t, err)
	}
	extra := extraKeys(t, raw)

	switch t {
	case SectionTypeHeader:
		var p HeaderProps
		err = json.Unmarshal(data, &p)
		p.Extra = extra
		return p, wrapDecode(t, err)
	case SectionTypeHero:
		var p HeroProps
		err = json.Unmarshal(data, &p)
		p.Extra = extra
		return p, wrapDecode(t, err)
	case SectionTypeContent:
		var p ContentProps
		err = json.Unmarshal(data, &p)
		p.Extra = extra
		return p, wrapDecode(t, err)
	default:
		var p FooterProps
		err = json.Unmarshal(data, &p)
		p.Extra = extra
		return p, wrapDecode(t, err)
	}
}

// propAliases maps older prop names onto the fields that replaced them.
var propAliases = map[SectionType]map[string]string{
	SectionTypeHero: {
		"ctaText": "buttonText",
		"ctaLink": "buttonUrl",
	},
}

// resolveAliases returns raw with aliased keys renamed. When both names are
// present the current name wins. raw is not modified.
func resolveAliases(t SectionType, raw map[string]any) map[string]any {
	aliases := propAliases[t]
	found := false
	for alias := range aliases {
		if _, ok := raw[alias]; ok {
			found = true
			break
		}
	}
	if !found {
		return raw
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, isAlias := aliases[k]; !isAlias {
			out[k] = v
		}
	}
	for alias, name := range aliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		if _, set := out[name]; !set {
			out[name] = v
		}
	}

	return out
}

var definedKeys = map[SectionType]map[string]struct{}{
	SectionTypeHeader:  jsonKeys(reflect.TypeOf(HeaderProps{})),
	SectionTypeHero:    jsonKeys(reflect.TypeOf(HeroProps{})),
	SectionTypeContent: jsonKeys(reflect.TypeOf(ContentProps{})),
	SectionTypeFooter:  jsonKeys(reflect.TypeOf(FooterProps{})),
}

// jsonKeys collects the json names of rt's fields, including embedded ones.
func jsonKeys(rt reflect.Type) map[string]struct{} {
	keys := map[string]struct{}{}
	for i := range rt.NumField() {
		f := rt.Field(i)
		if f.Anonymous {
			for k := range jsonKeys(f.Type) {
				keys[k] = struct{}{}
			}
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = struct{}{}
	}

	return keys
}

func extraKeys(t SectionType, raw map[string]any) map[string]any {
	defined := definedKeys[t]
	var extra map[string]any
	for k, v := range raw {
		if _, ok := defined[k]; ok {
			continue
		}
		if extra == nil {
			extra = map[string]any{}
		}
		extra[k] = deepCopy(v)
	}

	return extra
}

// DecodePropsLenient decodes raw key by key, dropping keys whose value has the
// wrong shape. It returns the keys it dropped.
func DecodePropsLenient(t SectionType, raw map[string]any) (Props, []string) {
	if p, err := DecodeProps(t, raw); err == nil {
		return p, nil
	}

	var (
		props   = NewProps(t)
		dropped []string
	)
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		merged, err := MergeProps(props, map[string]any{k: raw[k]})
		if err != nil {
			dropped = append(dropped, k)
			continue
		}
		props = merged
	}

	return props, dropped
}

func wrapDecode(t SectionType, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("decode %s props: %w", t, err)
}

// PropsToMap returns the plain-object form of p.
func PropsToMap(p Props) (map[string]any, error) {
	if p == nil {
		return map[string]any{}, nil
	}
	if g, ok := p.(GenericProps); ok {
		values, _ := deepCopy(g.Values).(map[string]any)
		if values == nil {
			values = map[string]any{}
		}

		return values, nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s props: %w", p.SectionType(), err)
	}

	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s props: %w", p.SectionType(), err)
	}

	return out, nil
}

// MergeProps shallow-merges patch into p: each key in patch replaces the
// current value wholesale. p is not modified.
func MergeProps(p Props, patch map[string]any) (Props, error) {
	if p == nil {
		return nil, fmt.Errorf("merge into nil props")
	}

	current, err := PropsToMap(p)
	if err != nil {
		return nil, err
	}
	for k, v := range resolveAliases(p.SectionType(), patch) {
		current[k] = deepCopy(v)
	}

	return DecodeProps(p.SectionType(), current)
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = deepCopy(inner)
		}
		return out
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = deepCopy(inner)
		}
		return out
	default:
		return v
	}
}
