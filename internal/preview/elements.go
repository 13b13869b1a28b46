package preview

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

var voidElements = map[string]bool{"img": true, "br": true, "hr": true}

// el renders tag with attrs around children. Void elements ignore children.
func el(tag string, attrs templ.Attributer, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<"+tag); err != nil {
			return err
		}
		if attrs != nil {
			if err := templ.RenderAttributes(ctx, w, attrs); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, ">"); err != nil {
			return err
		}
		if voidElements[tag] {
			return nil
		}
		if err := templ.Join(children...).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</"+tag+">")

		return err
	})
}

// text renders s escaped.
func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

// attrs builds ordered attributes from key, value pairs.
func attrs(pairs ...string) templ.OrderedAttributes {
	out := make(templ.OrderedAttributes, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, templ.KV[string, any](pairs[i], pairs[i+1]))
	}

	return out
}

// textEl renders <tag class="class">s</tag>, leaving out an empty class.
func textEl(tag, class, s string) templ.Component {
	if class == "" {
		return el(tag, nil, text(s))
	}

	return el(tag, attrs("class", class), text(s))
}

// link renders an anchor whose href has been through templ's URL sanitizer.
func link(url, label string, extra ...string) templ.Component {
	return el("a", append(attrs("href", safeURL(url)), attrs(extra...)...), text(label))
}

// image renders an <img> with a sanitized src.
func image(class, src, alt string) templ.Component {
	return el("img", attrs("class", class, "src", safeURL(src), "alt", alt))
}

func safeURL(url string) string {
	return string(templ.URL(url))
}
