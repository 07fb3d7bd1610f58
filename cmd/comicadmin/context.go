package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"comicadmin/internal/admin"
	"comicadmin/internal/config"
	"comicadmin/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	adminOpts  []admin.Option

	configOnce sync.Once
	config     *config.Config
	configErr  error

	serviceOnce sync.Once
	service     *admin.Service
	logger      *slog.Logger
	serviceErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, opts ...admin.Option) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		adminOpts:  opts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureService builds the admin service once. CLI logs go to stderr and the
// shared log file so command output stays parseable.
func (c *commandContext) ensureService() (*admin.Service, error) {
	c.serviceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.serviceErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:            cfg.Logging.Level,
			Format:           cfg.Logging.Format,
			OutputPaths:      []string{"stderr", filepath.Join(cfg.Paths.LogDir, "comicadmin.log")},
			ErrorOutputPaths: []string{"stderr"},
		})
		if err != nil {
			c.serviceErr = fmt.Errorf("init logger: %w", err)
			return
		}
		svc, err := admin.New(cfg, logger, c.adminOpts...)
		if err != nil {
			c.serviceErr = err
			return
		}
		c.logger = logger
		c.service = svc
	})
	return c.service, c.serviceErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
