// Package config holds the pluginlinks settings gathered from CLI flags and
// the optional .pluginlinks YAML file, together with the XDG directories
// used for the run history database.
package config
