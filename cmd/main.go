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
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ledgerdesk/backoffice"
	"github.com/ledgerdesk/backoffice/config"
	"github.com/ledgerdesk/backoffice/database"
	"github.com/ledgerdesk/backoffice/internal/notification"
)

type Backoffice struct {
	cmd *cobra.Command
}

// backofficeInstance is shared by every subcommand once preRun has loaded the config.
type backofficeInstance struct {
	backoffice *backoffice.Backoffice
	cnf        *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *backofficeInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		// migrations only need the config, the engine connects to redis as well
		if cmd.Parent() != nil && cmd.Parent().Name() == "migrate" {
			return nil
		}

		b, err := setupBackoffice(cnf)
		if err != nil {
			notification.NotifyError(err)
			return err
		}
		app.backoffice = b
		return nil
	}
}

func setupBackoffice(cfg *config.Configuration) (*backoffice.Backoffice, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	b, err := backoffice.NewBackoffice(db)
	if err != nil {
		return nil, fmt.Errorf("error creating backoffice: %v", err)
	}
	return b, nil
}

func NewCLI() *Backoffice {
	var configFile string
	b := &backofficeInstance{}

	var rootCmd = &cobra.Command{
		Use:   "backoffice",
		Short: "Bank back office for service requests and loans",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./backoffice.json", "Configuration file for the back office")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Backoffice{cmd: rootCmd}
}

func (w Backoffice) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
