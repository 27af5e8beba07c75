package main

import (
	"io"
	"log/slog"
	"sync"

	"github.com/maauso/chapterize/internal/bootstrap"
	"github.com/maauso/chapterize/internal/config"
)

type commandContext struct {
	verbose bool
	quiet   bool
	json    bool

	logOut io.Writer

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error

	depsOnce sync.Once
	deps     *bootstrap.Dependencies
	depsErr  error
}

func newCommandContext(logOut io.Writer) *commandContext {
	return &commandContext{logOut: logOut}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		switch {
		case c.verbose:
			cfg.LogLevel = "debug"
		case c.quiet:
			cfg.LogLevel = "error"
		}
		c.config = cfg
		c.logger = cfg.NewLogger(c.logOut)
	})
	return c.config, c.configErr
}

func (c *commandContext) dependencies() (*bootstrap.Dependencies, error) {
	c.depsOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.depsErr = err
			return
		}
		c.deps, c.depsErr = bootstrap.NewDependencies(cfg, c.logger)
	})
	return c.deps, c.depsErr
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
