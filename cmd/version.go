package cmd

// Version is stamped at build time via -ldflags "-X ...cmd.Version=".
var Version = "0.1.0-dev"
