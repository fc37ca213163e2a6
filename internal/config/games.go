package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
)

//go:embed games.yaml
var defaultGames []byte

type gameFile struct {
	Games []gameEntry `yaml:"games"`
}

type gameEntry struct {
	Type      string `yaml:"type"`
	Active    bool   `yaml:"active"`
	RNGMode   string `yaml:"rng_mode"`
	HouseEdge amount `yaml:"house_edge"`
	MinWager  amount `yaml:"min_wager"`
	MaxWager  amount `yaml:"max_wager"`
	Paytable  *struct {
		Symbols  []string            `yaml:"symbols"`
		Paylines [][]int             `yaml:"paylines"`
		Payouts  map[string][]amount `yaml:"payouts"`
	} `yaml:"paytable"`
}

// amount decodes a YAML scalar, quoted or bare, from its text so the value
// never passes through float64.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalYAML(b []byte) error {
	text := strings.Trim(strings.TrimSpace(string(b)), `"'`)
	d, err := decimal.NewFromString(text)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", text, err)
	}
	a.Decimal = d
	return nil
}

// LoadGameConfigs parses the game configuration file at path, or the
// embedded defaults when path is empty.
func LoadGameConfigs(path string) ([]*models.GameConfig, error) {
	data := defaultGames
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read game config: %w", err)
		}
		data = b
	}
	return ParseGameConfigs(data)
}

func ParseGameConfigs(data []byte) ([]*models.GameConfig, error) {
	var file gameFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse game config: %w", err)
	}

	seen := make(map[models.GameType]bool)
	out := make([]*models.GameConfig, 0, len(file.Games))
	for _, g := range file.Games {
		cfg := &models.GameConfig{
			GameType:  models.GameType(g.Type),
			Active:    g.Active,
			RNGMode:   models.RNGMode(g.RNGMode),
			HouseEdge: g.HouseEdge.Decimal,
			MinWager:  g.MinWager.Decimal,
			MaxWager:  g.MaxWager.Decimal,
		}
		if cfg.RNGMode == "" {
			cfg.RNGMode = models.RNGModeFair
		}
		if g.Paytable != nil {
			pt := &models.Paytable{
				Symbols:  g.Paytable.Symbols,
				Paylines: g.Paytable.Paylines,
				Payouts:  make(map[string][]decimal.Decimal, len(g.Paytable.Payouts)),
			}
			for sym, units := range g.Paytable.Payouts {
				ds := make([]decimal.Decimal, len(units))
				for i, u := range units {
					ds[i] = u.Decimal
				}
				pt.Payouts[sym] = ds
			}
			cfg.Paytable = pt
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("game config: %w", err)
		}
		if seen[cfg.GameType] {
			return nil, fmt.Errorf("game config: %s listed twice", cfg.GameType)
		}
		seen[cfg.GameType] = true
		out = append(out, cfg)
	}
	return out, nil
}
