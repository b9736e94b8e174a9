// Package config loads the Beluga AI framework's configuration into the
// package-level [Cfg] value.
//
// # Loading Configuration
//
// [LoadConfig] builds a viper instance, sets defaults for the llms.*
// provider sections and the simba.* optimizer settings, and reads an
// optional YAML file named "config" from ".", "/etc/beluga-ai/",
// "$HOME/.beluga-ai" and any extra paths passed in. A missing file is not
// an error. The merged result is unmarshalled into [Cfg]:
//
//	if err := config.LoadConfig(); err != nil {
//	    log.Fatal(err)
//	}
//	batch := config.Cfg.Simba.BatchSize
//
// # Environment Variables
//
// Environment variables prefixed with BELUGA override file values, with
// each "." in a key replaced by "_": simba.batch_size is read from
// BELUGA_SIMBA_BATCH_SIZE.
//
// # Limits
//
// Loading always targets the fixed [Config] struct; there is no generic
// loader for other types and no environment-only loader. Values are not
// validated after loading, and the configuration file is read once per
// LoadConfig call; changes to it are not watched.
package config
