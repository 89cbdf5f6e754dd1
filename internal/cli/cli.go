package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Sync    *SyncCommand
	Import  *ImportCommand
	Search  *SearchCommand
	Reindex *ReindexCommand
	Serve   *ServeCommand
	Stats   *StatsCommand
	Hide    *HideCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "newsletter-search"
	parser.LongDescription = "Newsletter archive with full-text search: syncs sent issues from the provider API, imports legacy export bundles, and serves a search API."

	cmds := &commands{
		Sync:    &SyncCommand{globals: &globals, version: version},
		Import:  &ImportCommand{globals: &globals, version: version},
		Search:  &SearchCommand{globals: &globals, version: version},
		Reindex: &ReindexCommand{globals: &globals, version: version},
		Serve:   &ServeCommand{globals: &globals, version: version},
		Stats:   &StatsCommand{globals: &globals, version: version},
		Hide:    &HideCommand{globals: &globals, version: version},
	}

	parser.AddCommand("sync", "Sync sent issues from the provider API", "Pull sent campaigns from the provider API into the archive. Incremental by default; --all reconciles the full listing.", cmds.Sync)
	parser.AddCommand("import", "Import a legacy export ZIP", "Batch import a Mailchimp export ZIP (campaigns.csv plus campaigns_content HTML files).", cmds.Import)
	parser.AddCommand("search", "Search the archive", "Search archived issues by keyword or quoted phrase, with optional date filters.", cmds.Search)
	parser.AddCommand("reindex", "Rebuild the search index", "Rebuild the search index from the archive store and its content files.", cmds.Reindex)
	parser.AddCommand("serve", "Run the HTTP API server", "Run the JSON HTTP API server.", cmds.Serve)
	parser.AddCommand("stats", "Show archive statistics", "Show archive and search index statistics.", cmds.Stats)
	parser.AddCommand("hide", "Hide an issue", "Hide an issue from listings and search without deleting it. Use --show to unhide.", cmds.Hide)

	return parser, &globals, cmds
}

// Run is the main entry point for the CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parsing (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("newsletter-search %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
