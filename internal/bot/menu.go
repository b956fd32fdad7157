package bot

import (
	"strings"

	"github.com/ggorockee/partfinder/pkg/models"
)

// Button custom IDs
const (
	ButtonPhoto   = "menu:photo"
	ButtonText    = "menu:text"
	ButtonHistory = "menu:history"
	ButtonCity    = "menu:city"
	ButtonFilters = "menu:filters"
	ButtonBack    = "menu:back"

	cityPrefix     = "city:"
	partTypePrefix = "type:"
	pricePrefix    = "price:"
)

// Cities offered in the city menu
var Cities = []string{"Москва", "Санкт-Петербург", "Новосибирск", "Екатеринбург", "Казань"}

// Button menu button
type Button struct {
	ID    string
	Label string
}

// Menu rows of buttons
type Menu [][]Button

func mainMenu() Menu {
	return Menu{
		{{ID: ButtonPhoto, Label: "📸 Фото"}, {ID: ButtonText, Label: "✏ Текст"}},
		{{ID: ButtonHistory, Label: "📋 История"}, {ID: ButtonCity, Label: "🌍 Город"}, {ID: ButtonFilters, Label: "⚙ Фильтры"}},
	}
}

func filtersMenu() Menu {
	types := []models.PartType{models.PartTypeOriginal, models.PartTypeAftermarket, models.PartTypeUsedOEM}
	prices := []models.PriceFilter{models.PriceUnder5000, models.Price5000To10000, models.PriceOver10000}

	typeRow := make([]Button, 0, len(types))
	for _, t := range types {
		typeRow = append(typeRow, Button{ID: partTypePrefix + string(t), Label: t.Label()})
	}
	priceRow := make([]Button, 0, len(prices))
	for _, p := range prices {
		priceRow = append(priceRow, Button{ID: pricePrefix + string(p), Label: p.Label()})
	}
	return Menu{typeRow, priceRow, {backButton()}}
}

func citiesMenu() Menu {
	row := make([]Button, 0, len(Cities))
	for _, c := range Cities {
		row = append(row, Button{ID: cityPrefix + c, Label: c})
	}
	return Menu{row, {backButton()}}
}

func backButton() Button {
	return Button{ID: ButtonBack, Label: "◀ Назад"}
}

// parseButton splits a custom ID into its kind prefix and value
func parseButton(id string) (prefix, value string) {
	for _, p := range []string{cityPrefix, partTypePrefix, pricePrefix} {
		if strings.HasPrefix(id, p) {
			return p, strings.TrimPrefix(id, p)
		}
	}
	return id, ""
}
