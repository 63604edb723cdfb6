// Package admin holds the intelcored subcommands.
package admin

import "github.com/spf13/pflag"

// addOutputFlag registers the shared --output flag.
func addOutputFlag(fs *pflag.FlagSet) {
	fs.StringP("output", "o", "text", "Output format (text or json)")
}
