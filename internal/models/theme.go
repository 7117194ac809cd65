package models

import (
	"fmt"
	"regexp"
)

// FontSize selects the root font size.
type FontSize string

// ImageSize selects how tall post images are rendered.
type ImageSize string

// FontFamily selects the sans font stack.
type FontFamily string

const (
	FontSizeSmall  FontSize = "small"
	FontSizeMedium FontSize = "medium"
	FontSizeLarge  FontSize = "large"

	ImageSizeSmall  ImageSize = "small"
	ImageSizeMedium ImageSize = "medium"
	ImageSizeLarge  ImageSize = "large"

	FontFamilyInter    FontFamily = "inter"
	FontFamilyPlayfair FontFamily = "playfair"
	FontFamilySystem   FontFamily = "system"
)

var fontSizePixels = map[FontSize]string{
	FontSizeSmall:  "14px",
	FontSizeMedium: "16px",
	FontSizeLarge:  "18px",
}

var imageHeights = map[ImageSize]string{
	ImageSizeSmall:  "200px",
	ImageSizeMedium: "300px",
	ImageSizeLarge:  "400px",
}

var fontStacks = map[FontFamily]string{
	FontFamilyInter:    "Inter, system-ui, -apple-system, sans-serif",
	FontFamilyPlayfair: "Playfair Display, serif",
	FontFamilySystem:   "system-ui, -apple-system, sans-serif",
}

// hue saturation% lightness%, e.g. "200 100% 50%"
var hslPattern = regexp.MustCompile(`^(\d{1,3})\s+(\d{1,3})%\s+(\d{1,3})%$`)

// ThemeSettings holds the site-wide presentation preferences.
type ThemeSettings struct {
	PrimaryColor string     `json:"primary_color"`
	AccentColor  string     `json:"accent_color"`
	FontSize     FontSize   `json:"font_size"`
	ImageSize    ImageSize  `json:"image_size"`
	FontFamily   FontFamily `json:"font_family"`
}

// ThemePatch is a partial update. Nil fields are left unchanged.
type ThemePatch struct {
	PrimaryColor *string     `json:"primary_color,omitempty"`
	AccentColor  *string     `json:"accent_color,omitempty"`
	FontSize     *FontSize   `json:"font_size,omitempty"`
	ImageSize    *ImageSize  `json:"image_size,omitempty"`
	FontFamily   *FontFamily `json:"font_family,omitempty"`
}

// Presentation is the set of visual effects derived from a ThemeSettings value.
// It is always computed and applied as a whole.
type Presentation struct {
	CSSVariables  map[string]string `json:"css_variables"`
	RootFontSize  string            `json:"root_font_size"`
	ImageSizeAttr string            `json:"data_image_size"`
	ImageHeight   string            `json:"image_height"`
}

// DefaultTheme returns the settings used before any have been saved.
func DefaultTheme() ThemeSettings {
	return ThemeSettings{
		PrimaryColor: "200 100% 50%",
		AccentColor:  "15 90% 60%",
		FontSize:     FontSizeMedium,
		ImageSize:    ImageSizeMedium,
		FontFamily:   FontFamilyInter,
	}
}

// Empty reports whether the patch carries no fields.
func (p ThemePatch) Empty() bool {
	return p.PrimaryColor == nil && p.AccentColor == nil && p.FontSize == nil &&
		p.ImageSize == nil && p.FontFamily == nil
}

// Validate checks every present field.
func (p ThemePatch) Validate() error {
	if p.PrimaryColor != nil && !validColor(*p.PrimaryColor) {
		return fmt.Errorf("invalid primary_color %q", *p.PrimaryColor)
	}
	if p.AccentColor != nil && !validColor(*p.AccentColor) {
		return fmt.Errorf("invalid accent_color %q", *p.AccentColor)
	}
	if p.FontSize != nil {
		if _, ok := fontSizePixels[*p.FontSize]; !ok {
			return fmt.Errorf("invalid font_size %q", *p.FontSize)
		}
	}
	if p.ImageSize != nil {
		if _, ok := imageHeights[*p.ImageSize]; !ok {
			return fmt.Errorf("invalid image_size %q", *p.ImageSize)
		}
	}
	if p.FontFamily != nil {
		if _, ok := fontStacks[*p.FontFamily]; !ok {
			return fmt.Errorf("invalid font_family %q", *p.FontFamily)
		}
	}
	return nil
}

// Merge returns a copy of t with the present fields of p applied.
func (t ThemeSettings) Merge(p ThemePatch) ThemeSettings {
	out := t
	if p.PrimaryColor != nil {
		out.PrimaryColor = *p.PrimaryColor
	}
	if p.AccentColor != nil {
		out.AccentColor = *p.AccentColor
	}
	if p.FontSize != nil {
		out.FontSize = *p.FontSize
	}
	if p.ImageSize != nil {
		out.ImageSize = *p.ImageSize
	}
	if p.FontFamily != nil {
		out.FontFamily = *p.FontFamily
	}
	return out
}

// Validate checks a complete settings value.
func (t ThemeSettings) Validate() error {
	return ThemePatch{
		PrimaryColor: &t.PrimaryColor,
		AccentColor:  &t.AccentColor,
		FontSize:     &t.FontSize,
		ImageSize:    &t.ImageSize,
		FontFamily:   &t.FontFamily,
	}.Validate()
}

// Presentation derives the visual effects for t.
func (t ThemeSettings) Presentation() Presentation {
	return Presentation{
		CSSVariables: map[string]string{
			"--primary":   t.PrimaryColor,
			"--accent":    t.AccentColor,
			"--font-sans": fontStacks[t.FontFamily],
		},
		RootFontSize:  fontSizePixels[t.FontSize],
		ImageSizeAttr: string(t.ImageSize),
		ImageHeight:   imageHeights[t.ImageSize],
	}
}

// CSS renders the presentation as a stylesheet.
func (p Presentation) CSS() string {
	return fmt.Sprintf(":root {\n  --primary: %s;\n  --accent: %s;\n  --font-sans: %s;\n  font-size: %s;\n}\n"+
		"html { --image-height: %s; }\n"+
		"[data-image-size] img.post-image { height: var(--image-height); }\n",
		p.CSSVariables["--primary"], p.CSSVariables["--accent"], p.CSSVariables["--font-sans"],
		p.RootFontSize, p.ImageHeight)
}

func validColor(s string) bool {
	m := hslPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	var h, sat, l int
	_, _ = fmt.Sscanf(m[1]+" "+m[2]+" "+m[3], "%d %d %d", &h, &sat, &l)
	return h <= 360 && sat <= 100 && l <= 100
}

// SiteSetting is a persisted key/value document for process-wide settings.
type SiteSetting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`
}
