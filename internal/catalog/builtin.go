package catalog

import "github.com/conneroisu/pagebuilder/internal/types"

// Builtin returns the default templates in library order.
func Builtin() []types.SectionTemplate {
	return []types.SectionTemplate{
		{
			ID:          "header",
			Name:        "Header",
			Category:    "Navigation",
			Description: "Navigation header with logo and menu items",
			DefaultProps: types.HeaderProps{
				Title: "Your Website",
				NavigationItems: []types.NavLink{
					{Label: "Home", URL: "#"},
					{Label: "About", URL: "#about"},
					{Label: "Services", URL: "#services"},
					{Label: "Contact", URL: "#contact"},
				},
				Colors: types.Colors{BackgroundColor: "#ffffff", TextColor: "#000000"},
			},
			Thumbnail: "/thumbnails/header.svg",
		},
		{
			ID:          "hero",
			Name:        "Hero Banner",
			Category:    "Content",
			Description: "Large banner with title, subtitle, and call-to-action",
			DefaultProps: types.HeroProps{
				Title:       "Welcome to Our Website",
				Description: "Create amazing experiences with our platform",
				ButtonText:  "Get Started",
				ButtonURL:   "#",
				Colors:      types.Colors{BackgroundColor: "#f8fafc", TextColor: "#1e293b"},
			},
			Thumbnail: "/thumbnails/hero.svg",
		},
		{
			ID:          "content",
			Name:        "Content Block",
			Category:    "Content",
			Description: "Flexible content section with text and optional image",
			DefaultProps: types.ContentProps{
				Title:         "About Us",
				Content:       "Tell your story here. Add compelling content that engages your visitors and communicates your value proposition.",
				ImagePosition: "left",
				Colors:        types.Colors{BackgroundColor: "#ffffff", TextColor: "#374151"},
			},
			Thumbnail: "/thumbnails/content.svg",
		},
		{
			ID:          "footer",
			Name:        "Footer",
			Category:    "Navigation",
			Description: "Footer with links, social media, and copyright",
			DefaultProps: types.FooterProps{
				LinkGroups: []types.LinkGroup{
					{
						Title: "Company",
						Links: []types.NavLink{
							{Label: "About", URL: "#about"},
							{Label: "Careers", URL: "#careers"},
							{Label: "Contact", URL: "#contact"},
						},
					},
					{
						Title: "Support",
						Links: []types.NavLink{
							{Label: "Help Center", URL: "#help"},
							{Label: "Privacy Policy", URL: "#privacy"},
							{Label: "Terms of Service", URL: "#terms"},
						},
					},
				},
				SocialLinks: []types.SocialLink{
					{Platform: "Twitter", URL: "#", Icon: "twitter"},
					{Platform: "Facebook", URL: "#", Icon: "facebook"},
					{Platform: "LinkedIn", URL: "#", Icon: "linkedin"},
				},
				Copyright: "© 2024 Your Company. All rights reserved.",
				Colors:    types.Colors{BackgroundColor: "#1f2937", TextColor: "#f9fafb"},
			},
			Thumbnail: "/thumbnails/footer.svg",
		},
	}
}
