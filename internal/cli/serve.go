package cli

import (
	"github.com/acervolabs/newsletter-search/internal/web"
)

// Execute runs the HTTP API server until the listener fails or the process
// is killed.
func (c *ServeCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	addr := e.cfg.ListenAddr
	if c.Addr != "" {
		addr = c.Addr
	}

	server := web.NewServer(e.store, e.index, e.cfg.ContentDir)
	return server.ListenAndServe(addr)
}
