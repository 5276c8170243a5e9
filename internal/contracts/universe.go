package contracts

import "sort"

// Universe is the immutable sector/asset configuration passed into the pipeline.
// ⭐ SSOT: universe.yaml → every stage
type Universe struct {
	Sectors []SectorSpec `yaml:"sectors" json:"sectors"`
	Compare CompareSpec  `yaml:"compare" json:"-"`
}

// SectorSpec lists the assets of one sector in display order
type SectorSpec struct {
	Name   string      `yaml:"name" json:"name"`
	Assets []AssetSpec `yaml:"assets" json:"assets"`
}

// AssetSpec is static asset metadata shown to the user
type AssetSpec struct {
	Ticker      string `yaml:"ticker" json:"ticker"`
	CompanyName string `yaml:"company_name" json:"company_name"`
	ImageURL    string `yaml:"image_url" json:"image_url"`
}

// CompareSpec is the sector/crypto universe used by the correlation endpoint
type CompareSpec struct {
	Sectors map[string][]string `yaml:"sectors"`
	Crypto  map[string]string   `yaml:"crypto"`
}

// SectorNames returns sector names in configuration order
func (u *Universe) SectorNames() []string {
	names := make([]string, 0, len(u.Sectors))
	for _, s := range u.Sectors {
		names = append(names, s.Name)
	}
	return names
}

// Sector looks up a sector by name
func (u *Universe) Sector(name string) (SectorSpec, bool) {
	for _, s := range u.Sectors {
		if s.Name == name {
			return s, true
		}
	}
	return SectorSpec{}, false
}

// HasSector reports whether the sector is configured
func (u *Universe) HasSector(name string) bool {
	_, ok := u.Sector(name)
	return ok
}

// Tickers returns the tickers of the given sectors in configuration order.
// Unknown sectors are ignored.
func (u *Universe) Tickers(sectors ...string) []string {
	var tickers []string
	for _, name := range sectors {
		if s, ok := u.Sector(name); ok {
			for _, a := range s.Assets {
				tickers = append(tickers, a.Ticker)
			}
		}
	}
	return tickers
}

// AllTickers returns every configured ticker
func (u *Universe) AllTickers() []string {
	return u.Tickers(u.SectorNames()...)
}

// Asset finds static metadata for a ticker across all sectors
func (u *Universe) Asset(ticker string) (AssetSpec, bool) {
	for _, s := range u.Sectors {
		for _, a := range s.Assets {
			if a.Ticker == ticker {
				return a, true
			}
		}
	}
	return AssetSpec{}, false
}

// SectorOf returns the sector name holding the ticker
func (u *Universe) SectorOf(ticker string) (string, bool) {
	for _, s := range u.Sectors {
		for _, a := range s.Assets {
			if a.Ticker == ticker {
				return s.Name, true
			}
		}
	}
	return "", false
}

// CompareSectors returns the comparable sector names, sorted
func (c CompareSpec) CompareSectors() []string {
	names := make([]string, 0, len(c.Sectors))
	for name := range c.Sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
