// Package config loads runtime configuration for the container tracker
// client.
//
// Sources, later ones win:
//
//  1. Built-in defaults (see SetDefaults).
//  2. Optional JSON or YAML file given with --config.
//  3. Environment variables with the CT_ prefix; nested keys use "_",
//     so log.level is read from CT_LOG_LEVEL.
//  4. Command-line flags registered by BindFlags.
//
// Durations accept Go syntax such as "3s" or "24h":
//
//	server_addr: 127.0.0.1:50051
//	online_check_interval: 3s
//	log:
//	  file: /var/log/containertracker/client.log
//	  level: debug
package config
