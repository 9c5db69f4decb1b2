/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"

	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/ledgerdesk/backoffice"
	"github.com/ledgerdesk/backoffice/database"
)

const migrationSchema = "backoffice"

func migrateCommands(b *backofficeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run back office schema migrations",
	}

	cmd.AddCommand(migrateCommand(b, "up", migrate.Up))
	cmd.AddCommand(migrateCommand(b, "down", migrate.Down))

	return cmd
}

func migrateCommand(b *backofficeInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use: use,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runMigrations(b, direction)
			if err != nil {
				return err
			}
			if direction == migrate.Up {
				fmt.Printf("Applied %d migrations!\n", n)
			} else {
				fmt.Printf("Rolled back %d migrations!\n", n)
			}
			return nil
		},
	}
}

func runMigrations(b *backofficeInstance, direction migrate.MigrationDirection) (int, error) {
	migrations := migrate.EmbedFileSystemMigrationSource{
		FileSystem: backoffice.SQLFiles,
		Root:       "sql",
	}

	db, err := database.ConnectDB(b.cnf.DataSource.Dns)
	if err != nil {
		return 0, errors.Wrap(err, "connecting to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// the migration table lives in the same schema, so it has to exist first
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + migrationSchema); err != nil {
		return 0, errors.Wrap(err, "creating schema")
	}
	migrate.SetSchema(migrationSchema)
	n, err := migrate.Exec(db, "postgres", migrations, direction)
	if err != nil {
		return n, errors.Wrapf(err, "migrating %s", directionName(direction))
	}
	return n, nil
}

func directionName(direction migrate.MigrationDirection) string {
	if direction == migrate.Down {
		return "down"
	}
	return "up"
}
