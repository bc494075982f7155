package domain

// Category is the asset class a pledge belongs to. Each category has
// its own credit token and exposure limit.
type Category string

const (
	CategoryRealEstate  Category = "real_estate"
	CategoryCommodities Category = "commodities"
	CategoryBonds       Category = "bonds"
	CategoryEquipment   Category = "equipment"
	CategoryInventory   Category = "inventory"
	CategoryOther       Category = "other"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryRealEstate,
	CategoryCommodities,
	CategoryBonds,
	CategoryEquipment,
	CategoryInventory,
	CategoryOther,
}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// CategorySnapshot is a read-only view of one category's exposure
// accounting. ExposureCurrent sums the official value of all Verified
// and Minted pledges in the category.
type CategorySnapshot struct {
	Category        Category `json:"category"`
	ExposureLimit   int64    `json:"exposure_limit"`
	ExposureCurrent int64    `json:"exposure_current"`
}
