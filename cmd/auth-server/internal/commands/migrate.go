package commands

import (
	"context"

	auth "github.com/goliatone/go-org-auth"
	"github.com/goliatone/go-org-auth/logging"
)

type MigrateCmd struct {
	Database DatabaseFlags `embed:"" prefix:"db-"`
}

func (m *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	logger := logging.New(globals.Dev)

	db, err := m.Database.Open()
	if err != nil {
		return err
	}
	defer db.Close()

	return auth.Migrate(ctx, db, logger)
}
