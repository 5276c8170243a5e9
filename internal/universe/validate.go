package universe

import (
	"fmt"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// ValidationError aborts loading
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks structural constraints of a universe
func Validate(u *contracts.Universe) error {
	if len(u.Sectors) == 0 {
		return ValidationError{"sectors", "at least one sector required"}
	}

	sectors := make(map[string]bool, len(u.Sectors))
	tickers := make(map[string]string)

	for i, s := range u.Sectors {
		field := fmt.Sprintf("sectors[%d]", i)
		if s.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if sectors[s.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate sector %q", s.Name)}
		}
		sectors[s.Name] = true

		for j, a := range s.Assets {
			af := fmt.Sprintf("%s.assets[%d]", field, j)
			if a.Ticker == "" {
				return ValidationError{af + ".ticker", "required"}
			}
			if prev, dup := tickers[a.Ticker]; dup {
				return ValidationError{af + ".ticker", fmt.Sprintf("%s already listed in %s", a.Ticker, prev)}
			}
			tickers[a.Ticker] = s.Name

			// Crypto kind is derived from the identifier, so the two must agree
			isCrypto := contracts.KindOf(a.Ticker) == contracts.KindCrypto
			if isCrypto != (s.Name == contracts.CryptoSector) {
				return ValidationError{af + ".ticker", fmt.Sprintf("%s does not belong in sector %s", a.Ticker, s.Name)}
			}
		}
	}

	for name, list := range u.Compare.Sectors {
		if len(list) == 0 {
			return ValidationError{"compare.sectors." + name, "must list at least one ticker"}
		}
	}
	for name, ticker := range u.Compare.Crypto {
		if contracts.KindOf(ticker) != contracts.KindCrypto {
			return ValidationError{"compare.crypto." + name, fmt.Sprintf("%s is not a crypto pair", ticker)}
		}
	}

	return nil
}
