// Package config provides layered configuration loading for the hub.
//
// Configuration is assembled from three layers, each overriding the last:
//
//  1. Built-in defaults
//  2. JSON configuration files, added in order via AddLayer
//  3. Environment variables with the HOMEGUARD_ prefix
//
// Duration fields accept Go duration strings ("30s", "5m") in JSON files.
//
// Example:
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/homeguard/config.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
package config
