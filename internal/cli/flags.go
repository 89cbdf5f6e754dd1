package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	DataDir string `long:"data-dir" description:"Override the data directory (database, index, content files)"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// SyncCommand pulls sent campaigns from the source API into the archive.
type SyncCommand struct {
	All   bool `long:"all" description:"Full reconciliation: page through the entire sent listing"`
	Limit int  `long:"limit" description:"Stop a full sync after N imported/updated issues (0 = no limit)"`

	globals *GlobalFlags
	version string
}

// ImportCommand batch-imports a Mailchimp export ZIP.
type ImportCommand struct {
	Args struct {
		ZipPath string `positional-arg-name:"zip" required:"yes" description:"Path to the export ZIP"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// SearchCommand queries the archive from the terminal.
type SearchCommand struct {
	From    string `long:"from" description:"Only issues sent on or after this date (YYYY-MM-DD)"`
	To      string `long:"to" description:"Only issues sent on or before this date (YYYY-MM-DD)"`
	Sort    string `long:"sort" description:"Result order: relevance | date_desc | date_asc" default:"relevance"`
	Page    int    `long:"page" description:"Result page" default:"1"`
	PerPage int    `long:"per-page" description:"Results per page" default:"20"`

	Args struct {
		Query []string `positional-arg-name:"query" description:"Search terms"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// ReindexCommand rebuilds the search index from the archive.
type ReindexCommand struct {
	globals *GlobalFlags
	version string
}

// ServeCommand runs the HTTP API server.
type ServeCommand struct {
	Addr string `long:"addr" description:"Override the listen address"`

	globals *GlobalFlags
	version string
}

// StatsCommand shows archive and index statistics.
type StatsCommand struct {
	globals *GlobalFlags
	version string
}

// HideCommand hides an issue from listings and search (or unhides it).
type HideCommand struct {
	Show bool `long:"show" description:"Unhide instead of hide"`

	Args struct {
		ID string `positional-arg-name:"id" required:"yes" description:"Issue ID"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}
