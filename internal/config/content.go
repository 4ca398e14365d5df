package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/dmetrik/gamehall/internal/games/blackjack"
	"github.com/dmetrik/gamehall/internal/games/dilemma"
	"github.com/dmetrik/gamehall/internal/games/slots"
	"github.com/dmetrik/gamehall/internal/games/tasks"
	"github.com/dmetrik/gamehall/internal/pricing"
)

// Content is the game tuning loaded from a TOML file: machine catalogs,
// payout bands, payoff matrices, and pricing parameters. Operators edit this
// file; code never hardcodes a payout outside the defaults below.
type Content struct {
	Slots     slots.Config         `toml:"slots"`
	Tasks     tasks.Config         `toml:"tasks"`
	Dilemma   dilemma.Config       `toml:"dilemma"`
	Blackjack blackjack.Config     `toml:"blackjack"`
	Pricing   pricing.Config       `toml:"pricing"`
	Damper    pricing.DamperConfig `toml:"damper"`
}

func DefaultContent() Content {
	return Content{
		Slots:     slots.DefaultConfig(),
		Tasks:     tasks.DefaultConfig(),
		Dilemma:   dilemma.DefaultConfig(),
		Blackjack: blackjack.DefaultConfig(),
		Pricing:   pricing.DefaultConfig(),
		Damper:    pricing.DefaultDamperConfig(),
	}
}

// LoadContent reads the content file over the defaults; sections absent from
// the file keep their default tuning. An empty path means defaults only.
func LoadContent(path string) (Content, error) {
	content := DefaultContent()

	if path == "" {
		return content, nil
	}

	meta, err := toml.DecodeFile(path, &content)
	if err != nil {
		if os.IsNotExist(err) {
			return Content{}, fmt.Errorf("content file %q: %w", path, err)
		}

		return Content{}, fmt.Errorf("parse content file %q: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Content{}, fmt.Errorf("content file %q: unknown keys %v", path, undecoded)
	}

	return content, nil
}
