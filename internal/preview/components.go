package preview

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/pagebuilder/internal/types"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

// ComponentFunc builds the component for one section.
type ComponentFunc func(section types.Section) (templ.Component, error)

// sectionEl renders the <section> for a component with the color style
// applied. Invalid colors are left out.
func sectionEl(class string, colors types.Colors, children ...templ.Component) templ.Component {
	a := attrs("class", class)
	var style templ.SafeCSS
	if colors.BackgroundColor != "" && validation.ValidateColor(colors.BackgroundColor) == nil {
		style += templ.SanitizeCSS("background-color", colors.BackgroundColor)
	}
	if colors.TextColor != "" && validation.ValidateColor(colors.TextColor) == nil {
		style += templ.SanitizeCSS("color", colors.TextColor)
	}
	if style != "" {
		a = append(a, attrs("style", string(style))...)
	}

	return el("section", a, children...)
}

func propsAs[T types.Props](section types.Section) (T, error) {
	p, ok := section.Props.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("section %s has %T props, want %T", section.ID, section.Props, zero)
	}

	return p, nil
}

// HeaderComponent renders a navigation header.
func HeaderComponent(section types.Section) (templ.Component, error) {
	p, err := propsAs[types.HeaderProps](section)
	if err != nil {
		return nil, err
	}

	var nav []templ.Component
	if p.LogoURL != "" {
		nav = append(nav, image("pb-logo", p.LogoURL, p.Title))
	}
	nav = append(nav, textEl("span", "pb-site-title", p.Title))
	if len(p.NavigationItems) > 0 {
		items := make([]templ.Component, 0, len(p.NavigationItems))
		for _, item := range p.NavigationItems {
			items = append(items, el("li", nil, link(item.URL, item.Label)))
		}
		nav = append(nav, el("ul", attrs("class", "pb-nav-links"), items...))
	}

	return sectionEl("pb-header", p.Colors, el("nav", attrs("class", "pb-header-nav"), nav...)), nil
}

// HeroComponent renders a banner with a call to action.
func HeroComponent(section types.Section) (templ.Component, error) {
	p, err := propsAs[types.HeroProps](section)
	if err != nil {
		return nil, err
	}

	var body []templ.Component
	if p.BackgroundImage != "" {
		body = append(body, image("pb-hero-background", p.BackgroundImage, ""))
	}
	body = append(body, textEl("h1", "pb-hero-title", p.Title))
	if p.Subtitle != "" {
		body = append(body, textEl("h2", "pb-hero-subtitle", p.Subtitle))
	}
	if p.Description != "" {
		body = append(body, textEl("p", "pb-hero-description", p.Description))
	}
	if p.ButtonText != "" {
		target := p.ButtonURL
		if target == "" {
			target = "#"
		}
		body = append(body, link(target, p.ButtonText, "class", "pb-button"))
	}
	if p.ImageURL != "" {
		body = append(body, image("pb-hero-image", p.ImageURL, p.Title))
	}

	return sectionEl("pb-hero", p.Colors, body...), nil
}

// ContentComponent renders a text block with an optional image. Content is
// passed through the content sanitizer before escaping.
func ContentComponent(section types.Section) (templ.Component, error) {
	p, err := propsAs[types.ContentProps](section)
	if err != nil {
		return nil, err
	}

	position := p.ImagePosition
	switch position {
	case "left", "right", "top", "bottom":
	default:
		position = "left"
	}

	blocks := []templ.Component{textEl("h2", "pb-content-title", p.Title)}
	for _, para := range paragraphs(validation.SanitizeContent(p.Content)) {
		blocks = append(blocks, textEl("p", "", para))
	}
	body := el("div", attrs("class", "pb-content-body"), blocks...)

	if p.ImageURL == "" {
		return sectionEl("pb-content pb-image-"+position, p.Colors, body), nil
	}
	img := image("pb-content-image", p.ImageURL, p.Title)
	if position == "left" || position == "top" {
		return sectionEl("pb-content pb-image-"+position, p.Colors, img, body), nil
	}

	return sectionEl("pb-content pb-image-"+position, p.Colors, body, img), nil
}

// FooterComponent renders link groups, social links and the copyright line.
func FooterComponent(section types.Section) (templ.Component, error) {
	p, err := propsAs[types.FooterProps](section)
	if err != nil {
		return nil, err
	}

	var body []templ.Component
	for _, group := range p.LinkGroups {
		links := make([]templ.Component, 0, len(group.Links))
		for _, l := range group.Links {
			links = append(links, el("li", nil, link(l.URL, l.Label)))
		}
		body = append(body, el("div", attrs("class", "pb-link-group"),
			textEl("h3", "", group.Title),
			el("ul", nil, links...),
		))
	}
	if len(p.SocialLinks) > 0 {
		social := make([]templ.Component, 0, len(p.SocialLinks))
		for _, l := range p.SocialLinks {
			social = append(social, el("li", nil, link(l.URL, l.Platform, "data-icon", l.Icon)))
		}
		body = append(body, el("ul", attrs("class", "pb-social"), social...))
	}
	if p.Copyright != "" {
		body = append(body, textEl("p", "pb-copyright", p.Copyright))
	}

	return sectionEl("pb-footer", p.Colors, body...), nil
}

func paragraphs(s string) []string {
	var out []string
	for _, block := range strings.Split(s, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}

	return out
}
