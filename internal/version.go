package internal

// Version is the build version, overridden at build time with
// -ldflags "-X github.com/lfavole/voting/internal.Version=...".
var Version = "dev"
