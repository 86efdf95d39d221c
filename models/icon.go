package models

import "strings"

// Icon is the closed set of category icons the front end knows how to draw
type Icon string

const (
	IconNone     Icon = "none"
	IconWrench   Icon = "wrench"
	IconHammer   Icon = "hammer"
	IconHome     Icon = "home"
	IconHeart    Icon = "heart"
	IconPalette  Icon = "palette"
	IconComputer Icon = "computer"
	IconShield   Icon = "shield"
	IconBookOpen Icon = "book-open"
	IconTruck    Icon = "truck"
	IconChefHat  Icon = "chef-hat"
)

// icons maps stored icon names (lowercased) to their Icon
var icons = map[string]Icon{
	"wrench":   IconWrench,
	"hammer":   IconHammer,
	"home":     IconHome,
	"heart":    IconHeart,
	"palette":  IconPalette,
	"computer": IconComputer,
	"shield":   IconShield,
	"bookopen": IconBookOpen,
	"truck":    IconTruck,
	"chefhat":  IconChefHat,
}

// ParseIcon resolves a stored icon name such as "BookOpen", "bookOpen" or
// "book-open". Unknown names resolve to IconNone.
func ParseIcon(name string) Icon {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	if icon, ok := icons[key]; ok {
		return icon
	}
	return IconNone
}
