// Package config loads the dashboard configuration.
//
// Values come from three layers, later ones winning:
//
//  1. Default()
//  2. a YAML file (GRIEF_CONFIG, or config.yaml / configs/config.yaml)
//  3. GRIEF_* environment variables, e.g. GRIEF_SOURCE_LOCATION,
//     GRIEF_SOURCE_AUTO_REFRESH, GRIEF_CACHE_REDIS_ADDR
//
// Example config.yaml:
//
//	server:
//	  port: 8080
//	source:
//	  location: https://example.org/exports/griefs.xlsx
//	  refresh_interval: 5m
//	  auto_refresh: true
//	cache:
//	  redis_addr: localhost:6379
package config
