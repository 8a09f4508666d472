// Package config provides configuration loading and validation for the
// voice agent service. It handles YAML-based configuration with struct
// validation, overlaying credentials and model paths from environment
// variables so secrets stay out of the config file.
package config
