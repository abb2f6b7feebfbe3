package enums

import "fmt"

// PromotionType selects the discount mechanic of a promotion.
type PromotionType string

const (
	PromotionTypePercentage   PromotionType = "percentage"
	PromotionTypeFixed        PromotionType = "fixed"
	PromotionTypeFreeDelivery PromotionType = "free_delivery"
	PromotionTypeBuyOneGetOne PromotionType = "buy_one_get_one"
)

var validPromotionTypes = []PromotionType{
	PromotionTypePercentage,
	PromotionTypeFixed,
	PromotionTypeFreeDelivery,
	PromotionTypeBuyOneGetOne,
}

// IsValid reports whether the value is a known PromotionType.
func (p PromotionType) IsValid() bool {
	for _, candidate := range validPromotionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromotionType converts the raw string to PromotionType.
func ParsePromotionType(value string) (PromotionType, error) {
	for _, candidate := range validPromotionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion type %q", value)
}

// PromotionScope limits which carts a promotion may discount.
type PromotionScope string

const (
	PromotionScopeAll      PromotionScope = "all"
	PromotionScopeCategory PromotionScope = "category"
	PromotionScopeStore    PromotionScope = "store"
	PromotionScopeItem     PromotionScope = "item"
)

var validPromotionScopes = []PromotionScope{
	PromotionScopeAll,
	PromotionScopeCategory,
	PromotionScopeStore,
	PromotionScopeItem,
}

// IsValid reports whether the value is a known PromotionScope.
func (p PromotionScope) IsValid() bool {
	for _, candidate := range validPromotionScopes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromotionScope converts the raw string to PromotionScope.
func ParsePromotionScope(value string) (PromotionScope, error) {
	for _, candidate := range validPromotionScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion scope %q", value)
}
