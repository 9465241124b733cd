/*
Copyright 2023 The Funchost Authors.

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

package app

import (
	"fmt"

	"github.com/funchost/funchost/pkg/version"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/spf13/cobra"
)

type RootCommandeer struct {
	cmd     *cobra.Command
	verbose bool
}

func NewRootCommandeer() *RootCommandeer {
	commandeer := &RootCommandeer{}

	cmd := &cobra.Command{
		Use:           "funchost [command]",
		Short:         "CloudEvents function host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&commandeer.verbose, "verbose", "v", false, "Verbose output")

	// add children
	cmd.AddCommand(
		newRunCommandeer(commandeer).cmd,
		newVersionCommandeer(commandeer).cmd,
	)

	commandeer.cmd = cmd

	return commandeer
}

// Execute uses os.Args to execute the command
func (rc *RootCommandeer) Execute() error {
	return rc.cmd.Execute()
}

func (rc *RootCommandeer) createLogger() (logger.Logger, error) {
	var loggerLevel nucliozap.Level

	if rc.verbose {
		loggerLevel = nucliozap.DebugLevel
	} else {
		loggerLevel = nucliozap.InfoLevel
	}

	loggerInstance, err := nucliozap.NewNuclioZapCmd("funchost", loggerLevel)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create logger")
	}

	return loggerInstance, nil
}

type runCommandeer struct {
	cmd               *cobra.Command
	rootCommandeer    *RootCommandeer
	configurationPath string
	listenAddress     string
}

func newRunCommandeer(rootCommandeer *RootCommandeer) *runCommandeer {
	commandeer := &runCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve the configured function",
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandeer.run()
		},
	}

	cmd.Flags().StringVarP(&commandeer.configurationPath, "config", "c", "", "Path of configuration file")
	cmd.Flags().StringVarP(&commandeer.listenAddress, "listen", "l", "", "Listen address override (e.g. :8080)")

	commandeer.cmd = cmd

	return commandeer
}

func (rc *runCommandeer) run() error {
	loggerInstance, err := rc.rootCommandeer.createLogger()
	if err != nil {
		return err
	}

	funchost, err := NewFunchost(loggerInstance,
		rc.configurationPath,
		rc.listenAddress,
		rc.rootCommandeer.verbose)
	if err != nil {
		return err
	}

	return funchost.Start()
}

type versionCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
}

func newVersionCommandeer(rootCommandeer *RootCommandeer) *versionCommandeer {
	commandeer := &versionCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			versionInfo := version.Get()

			fmt.Printf("Version %s, git commit %s, arch %s/%s\n",
				versionInfo.Label,
				versionInfo.GitCommit,
				versionInfo.OS,
				versionInfo.Arch)

			return nil
		},
	}

	commandeer.cmd = cmd

	return commandeer
}
