// Package branding holds the user-facing product identity strings.
package branding

// AppName is the product name shown to users and announced by servers.
const AppName = "Threshold.Games"
