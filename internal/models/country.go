package models

import (
	"fmt"
	"strings"
)

// Country is a country a post or user is associated with.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// Countries lists the supported countries in display order.
var Countries = []Country{
	{Code: "US", Name: "United States", Flag: "🇺🇸"},
	{Code: "UK", Name: "United Kingdom", Flag: "🇬🇧"},
	{Code: "FR", Name: "France", Flag: "🇫🇷"},
	{Code: "DE", Name: "Germany", Flag: "🇩🇪"},
	{Code: "JP", Name: "Japan", Flag: "🇯🇵"},
	{Code: "BR", Name: "Brazil", Flag: "🇧🇷"},
	{Code: "IN", Name: "India", Flag: "🇮🇳"},
	{Code: "AU", Name: "Australia", Flag: "🇦🇺"},
}

// ParseCountry normalizes a country code and checks it against Countries.
func ParseCountry(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	for _, c := range Countries {
		if c.Code == code {
			return code, nil
		}
	}
	return "", fmt.Errorf("unknown country %q", raw)
}
