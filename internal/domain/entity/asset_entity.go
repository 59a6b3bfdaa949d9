package entity

import (
	"fmt"
	"time"
)

// AssetCategory classifies an uploaded object. The category alone decides
// visibility and grant lifetime.
type AssetCategory string

const (
	AssetProductImage  AssetCategory = "PRODUCT_IMAGE"
	AssetCategoryImage AssetCategory = "CATEGORY_IMAGE"
	AssetAvatar        AssetCategory = "AVATAR"
	AssetKYCDocument   AssetCategory = "KYC_DOCUMENT"
)

// AccessPolicy is what a category resolves to.
type AccessPolicy struct {
	Public       bool
	GrantTTL     time.Duration
	CacheControl string
}

const (
	immutableCatalogCache = "public, max-age=31536000, immutable"
	privateGrantTTL       = time.Hour
)

var assetPolicies = map[AssetCategory]AccessPolicy{
	AssetProductImage:  {Public: true, CacheControl: immutableCatalogCache},
	AssetCategoryImage: {Public: true, CacheControl: immutableCatalogCache},
	AssetAvatar:        {Public: false, GrantTTL: privateGrantTTL, CacheControl: "private, max-age=3600"},
	AssetKYCDocument:   {Public: false, GrantTTL: privateGrantTTL, CacheControl: "private, no-store"},
}

// AllAssetCategories lists every category the policy table must cover.
func AllAssetCategories() []AssetCategory {
	return []AssetCategory{AssetProductImage, AssetCategoryImage, AssetAvatar, AssetKYCDocument}
}

// PolicyFor returns the access policy of c. An unclassified category is a
// programming error and panics.
func PolicyFor(c AssetCategory) AccessPolicy {
	p, ok := assetPolicies[c]
	if !ok {
		panic(fmt.Sprintf("asset category %q has no access policy", c))
	}
	return p
}

func (c AssetCategory) IsPublic() bool { return PolicyFor(c).Public }

// ParseAssetCategory validates an externally supplied category name.
func ParseAssetCategory(s string) (AssetCategory, error) {
	c := AssetCategory(s)
	if _, ok := assetPolicies[c]; !ok {
		return "", fmt.Errorf("unknown asset category %q", s)
	}
	return c, nil
}
