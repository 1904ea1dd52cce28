// Package config manages user-level settings stored at ~/.cortex/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the install root, the script timeout, and the script failure policy.
package config
