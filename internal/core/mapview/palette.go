package mapview

import "strings"

// Palette maps listing categories to marker colors.
// Keys are matched case-insensitively; viper lowercases map keys on load.
type Palette struct {
	Colors   map[string]string `mapstructure:"colors"`
	Fallback string            `mapstructure:"fallback"`
}

func DefaultPalette() Palette {
	return Palette{
		Colors: map[string]string{
			"electronics":   "#3b82f6",
			"furniture":     "#a16207",
			"clothing":      "#ec4899",
			"books":         "#8b5cf6",
			"sports":        "#22c55e",
			"music":         "#f97316",
			"tools":         "#64748b",
			"toys":          "#eab308",
			"home & garden": "#14b8a6",
			"art":           "#ef4444",
		},
		Fallback: "#6b7280",
	}
}

// ColorFor returns the marker color for category, or the fallback.
func (p Palette) ColorFor(category string) string {
	if c, ok := p.Colors[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return p.Fallback
}
