package commands

import (
	"runtime"

	"github.com/spcent/autoreload/cmd/autoreload/internal/output"
	"github.com/spcent/autoreload/health"
)

type VersionCmd struct{}

func (c *VersionCmd) Name() string {
	return "version"
}

func (c *VersionCmd) Short() string {
	return "Show version information"
}

func (c *VersionCmd) Run(ctx *Context, args []string) error {
	fs := ctx.newFlagSet("version")
	if err := fs.Parse(args); err != nil {
		return output.Wrap(output.ExitUsage, "invalid flags", err)
	}

	info := health.GetBuildInfo()
	versionInfo := map[string]any{
		"version":    info.Version,
		"git_commit": info.Commit,
		"build_date": info.BuildTime,
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
	}

	return ctx.Out.Success("autoreload", versionInfo)
}
