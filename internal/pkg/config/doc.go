// Package config exposes typed, read-only access to application settings.
//
// Values come from a YAML file (hot reloaded through fsnotify) and may be
// overridden by MAILBITE_* environment variables.
package config
