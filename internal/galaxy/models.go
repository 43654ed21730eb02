package galaxy

import (
	"galactic-server/internal/shared/config"
	apperrors "galactic-server/internal/shared/errors"
)

// Options shape one generated galaxy.
type Options struct {
	Seed int64
	// Size is the total number of systems.
	Size               int
	ClusterSize        int
	Spacing            float64
	CyclePercentage    float64
	CollisionPrecision float64
}

// OptionsFromConfig fills Options from the galaxy configuration section.
func OptionsFromConfig(cfg config.GalaxyConfig, seed int64) Options {
	return Options{
		Seed:               seed,
		Size:               cfg.DefaultSize,
		ClusterSize:        cfg.ClusterSize,
		Spacing:            cfg.DefaultSpacing,
		CyclePercentage:    cfg.CyclePercentage,
		CollisionPrecision: cfg.CollisionPrecision,
	}
}

// Validate rejects options no template can satisfy.
func (o Options) Validate() error {
	switch {
	case o.Size <= 0:
		return apperrors.Validation("galaxy size must be positive")
	case o.ClusterSize <= 0:
		return apperrors.Validation("cluster size must be positive")
	case len(templatesFor(min(o.ClusterSize, o.Size))) == 0:
		return apperrors.Validationf("no template holds clusters of %d systems", o.ClusterSize)
	case o.Spacing <= 0:
		return apperrors.Validation("spacing must be positive")
	case o.CyclePercentage < 0 || o.CyclePercentage > 1:
		return apperrors.Validation("cycle percentage must be between 0 and 1")
	case o.CollisionPrecision < 1:
		return apperrors.Validation("collision precision must be at least 1")
	}
	return nil
}

var systemNames = []string{
	"Altair", "Vega", "Sirius", "Arcturus", "Capella", "Rigel", "Procyon",
	"Betelgeuse", "Aldebaran", "Spica", "Antares", "Pollux", "Fomalhaut",
	"Deneb", "Regulus", "Adhara", "Castor", "Gacrux", "Bellatrix", "Elnath",
	"Miaplacidus", "Alnilam", "Alnair", "Alioth", "Dubhe", "Mirfak", "Wezen",
	"Sargas", "Kaus", "Avior", "Menkalinan", "Atria", "Alhena", "Peacock",
	"Alsephina", "Mirzam", "Polaris", "Alphard", "Hamal", "Algieba", "Diphda",
	"Mizar", "Nunki", "Menkent", "Mirach", "Alpheratz", "Rasalhague", "Kochab",
	"Saiph", "Zubenelgenubi", "Enif", "Schedar", "Markab", "Unukalhai", "Tau",
}
