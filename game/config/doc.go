// Package config provides configuration for the 2048 game server.
//
// The config package handles two concerns:
//   - Settings: process-wide options (listen address, storage backend, undo
//     depth, language, event bus) read through viper from an optional
//     game2048.yaml file, GAME2048_* environment variables and defaults
//   - Variants: named rule presets (board size, starting tiles, chance of a 4)
//     that sessions are created from
//
// Variant Format:
//
// Variants live as YAML or JSON files in the variants directory, one per file,
// named after the variant id:
//
//	name: Classic
//	description: 4x4 board, two starting tiles
//	size: 4
//	start_tiles: 2
//	four_probability: 0.1
//
// The "classic" variant is always available, even without a directory.
//
// Usage:
//
//	settings, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manager, err := config.NewManager(settings.VariantsDir)
//	if err != nil {
//		log.Fatal(err)
//	}
//	classic := manager.GetDefault()
package config
