// Package config provides configuration management for demoreport.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern DEMOREPORT_<SECTION>_<FIELD>:
//
//	DEMOREPORT_LOGGING_LEVEL=debug
//	DEMOREPORT_CACHE_BACKEND=sqlite
//	DEMOREPORT_CACHE_OBJECT_STORE_ENDPOINT=localhost:9000
//	DEMOREPORT_EXPORT_CACHE_READ_POLICY=reanalyze
//	DEMOREPORT_TELEMETRY_METRIC_EXPORTER=none
//
// # Path Management
//
// Relative directories in the Paths section are resolved against a base
// directory (the executable directory by default) into a Paths value:
//
//	paths := cfg.ResolvePaths(baseDir)
//	cacheDir := paths.CacheDir
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For tests, Default() returns a configuration that needs no environment
// or files.
package config
