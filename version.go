package scriptdeck

// Version is the release identifier, overridable at build time with
// -ldflags "-X github.com/scriptdeck/scriptdeck.Version=...".
var Version = "0.1.0"
