package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-org-auth/cmd/auth-server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Dev     bool `help:"Enable development logging." env:"AUTH_DEV"`
		Version kong.VersionFlag
		Serve   commands.ServeCmd   `cmd:"" help:"Start the auth HTTP server"`
		Migrate commands.MigrateCmd `cmd:"" help:"Apply database migrations and exit"`
	}
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Dev: cli.Dev, Version: version})
	cmd.FatalIfErrorf(err)
}
