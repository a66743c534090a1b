// Package catalog holds the static product table: credit packs and the
// subscription product. Prices live in an embedded YAML file so operators can
// review them without digging through code; duration and bonus credits may be
// overridden from the environment.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var productsYAML []byte

type CreditPack struct {
	Tag      string  `yaml:"tag"`
	Credits  int64   `yaml:"credits"`
	PriceUSD float64 `yaml:"price_usd"`
}

type SubscriptionProduct struct {
	Tag          string  `yaml:"tag"`
	PriceUSD     float64 `yaml:"price_usd"`
	DurationDays int     `yaml:"duration_days"`
	BonusCredits int64   `yaml:"bonus_credits"`
}

type Catalog struct {
	CreditPacks  []CreditPack        `yaml:"credit_packs"`
	Subscription SubscriptionProduct `yaml:"subscription"`
}

// Load parses the embedded product table. Overrides replace the subscription
// duration and bonus when positive (env-driven, see config).
func Load(durationDays int, bonusCredits int64) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(productsYAML, &c); err != nil {
		return nil, fmt.Errorf("parse products.yaml: %w", err)
	}
	if len(c.CreditPacks) == 0 {
		return nil, fmt.Errorf("products.yaml: no credit packs defined")
	}
	for _, p := range c.CreditPacks {
		if p.Tag == "" || p.Credits <= 0 || p.PriceUSD <= 0 {
			return nil, fmt.Errorf("products.yaml: invalid credit pack %q", p.Tag)
		}
	}
	if c.Subscription.Tag == "" || c.Subscription.PriceUSD <= 0 {
		return nil, fmt.Errorf("products.yaml: invalid subscription product")
	}
	if durationDays > 0 {
		c.Subscription.DurationDays = durationDays
	}
	if bonusCredits > 0 {
		c.Subscription.BonusCredits = bonusCredits
	}
	if c.Subscription.DurationDays <= 0 {
		return nil, fmt.Errorf("products.yaml: subscription duration must be positive")
	}
	return &c, nil
}

// PackByTag returns the credit pack with the given tag, or nil.
func (c *Catalog) PackByTag(tag string) *CreditPack {
	for i := range c.CreditPacks {
		if c.CreditPacks[i].Tag == tag {
			return &c.CreditPacks[i]
		}
	}
	return nil
}

// SmallestPack is the default offer shown in out-of-credits replies.
func (c *Catalog) SmallestPack() CreditPack {
	best := c.CreditPacks[0]
	for _, p := range c.CreditPacks[1:] {
		if p.PriceUSD < best.PriceUSD {
			best = p
		}
	}
	return best
}
