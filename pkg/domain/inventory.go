package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// InventoryCategory names one of the four inventory counters.
type InventoryCategory string

// Inventory categories, in display order.
const (
	CategoryWater       InventoryCategory = "water"
	CategoryFood        InventoryCategory = "food"
	CategoryBlankets    InventoryCategory = "blankets"
	CategoryMedicalKits InventoryCategory = "medicalKits"
)

// Categories lists every inventory category in display order.
var Categories = []InventoryCategory{CategoryWater, CategoryFood, CategoryBlankets, CategoryMedicalKits}

// RequestItem is a requestable resupply item.
type RequestItem string

// The fixed set of requestable items.
const (
	ItemWaterCases  RequestItem = "Water Cases"
	ItemFoodBoxes   RequestItem = "Food Boxes"
	ItemBlankets    RequestItem = "Blankets"
	ItemMedicalKits RequestItem = "Medical Kits"
)

var requestItemCategories = map[RequestItem]InventoryCategory{
	ItemWaterCases:  CategoryWater,
	ItemFoodBoxes:   CategoryFood,
	ItemBlankets:    CategoryBlankets,
	ItemMedicalKits: CategoryMedicalKits,
}

// Category maps the item to the inventory counter it replenishes.
func (i RequestItem) Category() (InventoryCategory, bool) {
	c, ok := requestItemCategories[i]
	return c, ok
}

// Valid reports whether i is one of the requestable items.
func (i RequestItem) Valid() bool {
	_, ok := requestItemCategories[i]
	return ok
}

// ItemForCategory is the inverse of RequestItem.Category.
func ItemForCategory(c InventoryCategory) RequestItem {
	for item, cat := range requestItemCategories {
		if cat == c {
			return item
		}
	}
	return ""
}

// CategoryFromItemName resolves a free-form item name by substring, the way
// the remote mirror applies stocked quantities (water, food, blanket, med).
func CategoryFromItemName(name string) (InventoryCategory, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "water"):
		return CategoryWater, true
	case strings.Contains(lower, "food"):
		return CategoryFood, true
	case strings.Contains(lower, "blanket"):
		return CategoryBlankets, true
	case strings.Contains(lower, "med"):
		return CategoryMedicalKits, true
	}
	return "", false
}

// Get returns the counter for c.
func (inv OrgInventory) Get(c InventoryCategory) int {
	switch c {
	case CategoryWater:
		return inv.Water
	case CategoryFood:
		return inv.Food
	case CategoryBlankets:
		return inv.Blankets
	case CategoryMedicalKits:
		return inv.MedicalKits
	}
	return 0
}

// With returns a copy of inv with counter c set to v.
func (inv OrgInventory) With(c InventoryCategory, v int) OrgInventory {
	switch c {
	case CategoryWater:
		inv.Water = v
	case CategoryFood:
		inv.Food = v
	case CategoryBlankets:
		inv.Blankets = v
	case CategoryMedicalKits:
		inv.MedicalKits = v
	}
	return inv
}

// Sanitize clamps every counter to zero or above.
func (inv OrgInventory) Sanitize() OrgInventory {
	return OrgInventory{
		Water:       max(0, inv.Water),
		Food:        max(0, inv.Food),
		Blankets:    max(0, inv.Blankets),
		MedicalKits: max(0, inv.MedicalKits),
	}
}

// Add returns inv plus delivered, with negative deliveries ignored.
func (inv OrgInventory) Add(delivered OrgInventory) OrgInventory {
	d := delivered.Sanitize()
	return OrgInventory{
		Water:       inv.Water + d.Water,
		Food:        inv.Food + d.Food,
		Blankets:    inv.Blankets + d.Blankets,
		MedicalKits: inv.MedicalKits + d.MedicalKits,
	}.Sanitize()
}

// Total sums all counters.
func (inv OrgInventory) Total() int {
	return inv.Water + inv.Food + inv.Blankets + inv.MedicalKits
}

// InventoryInput is an untyped inventory payload as received from callers that
// may send strings, floats, NaN or nothing at all. Unknown keys are rejected
// when decoded from JSON.
type InventoryInput struct {
	Water       any `json:"water"`
	Food        any `json:"food"`
	Blankets    any `json:"blankets"`
	MedicalKits any `json:"medicalKits"`
}

// Inventory coerces the input into a sanitized OrgInventory.
func (in InventoryInput) Inventory() OrgInventory {
	return OrgInventory{
		Water:       CoerceCount(in.Water),
		Food:        CoerceCount(in.Food),
		Blankets:    CoerceCount(in.Blankets),
		MedicalKits: CoerceCount(in.MedicalKits),
	}
}

// CoerceCount converts an arbitrary value to a non-negative integer count.
// Non-numeric, NaN, infinite and negative values become zero; fractions are
// truncated.
func CoerceCount(v any) int {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
