package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Restaurant is the public profile shown to customers plus pricing settings
type Restaurant struct {
	Name          string         `yaml:"name"`
	Phone         string         `yaml:"phone"` // receives new-order notifications
	PickupAddress string         `yaml:"pickup_address"`
	Hours         string         `yaml:"hours"`
	ContactLines  []string       `yaml:"contact"`
	DeliveryFee   float64        `yaml:"delivery_fee"`
	TimeZone      string         `yaml:"timezone"`
	Menu          []MenuCategory `yaml:"menu"`
}

// MenuCategory is a seed entry for the menu
type MenuCategory struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Products    []MenuProduct `yaml:"products"`
}

// MenuProduct is a seed entry for a product. Available defaults to true.
type MenuProduct struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	Available   *bool   `yaml:"available"`
}

// IsAvailable reports the effective availability of a seeded product
func (p MenuProduct) IsAvailable() bool {
	return p.Available == nil || *p.Available
}

// Location returns the restaurant time zone, falling back to UTC
func (r Restaurant) Location() *time.Location {
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadRestaurant reads a YAML restaurant profile from path
func LoadRestaurant(path string) (*Restaurant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseRestaurant(data)
}

// ParseRestaurant unmarshals YAML bytes into a validated Restaurant
func ParseRestaurant(data []byte) (*Restaurant, error) {
	var r Restaurant
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("config: parse restaurant: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Restaurant) validate() error {
	var errs []string
	if r.DeliveryFee < 0 {
		errs = append(errs, "delivery_fee must not be negative")
	}
	if r.TimeZone != "" {
		if _, err := time.LoadLocation(r.TimeZone); err != nil {
			errs = append(errs, fmt.Sprintf("unknown timezone %q", r.TimeZone))
		}
	}
	for i, c := range r.Menu {
		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("menu[%d].name is required", i))
		}
		for j, p := range c.Products {
			if p.Name == "" {
				errs = append(errs, fmt.Sprintf("menu[%d].products[%d].name is required", i, j))
			}
			if p.Price <= 0 {
				errs = append(errs, fmt.Sprintf("menu[%d].products[%d].price must be positive", i, j))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: restaurant validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// merge overlays the profile on top of env-derived values. Fields left empty
// in the YAML keep the environment value.
func (r *Restaurant) merge(base Restaurant) Restaurant {
	out := base
	if r.Name != "" {
		out.Name = r.Name
	}
	if r.Phone != "" {
		out.Phone = r.Phone
	}
	if r.PickupAddress != "" {
		out.PickupAddress = r.PickupAddress
	}
	if r.Hours != "" {
		out.Hours = r.Hours
	}
	if len(r.ContactLines) > 0 {
		out.ContactLines = r.ContactLines
	}
	if r.DeliveryFee > 0 {
		out.DeliveryFee = r.DeliveryFee
	}
	if r.TimeZone != "" {
		out.TimeZone = r.TimeZone
	}
	out.Menu = r.Menu
	return out
}
