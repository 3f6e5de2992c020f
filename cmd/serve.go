// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/gosocknet/app"
	"github.com/packetd/gosocknet/common"
	"github.com/packetd/gosocknet/confengine"
	"github.com/packetd/gosocknet/internal/sigs"
	"github.com/packetd/gosocknet/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a TCP listener that installs the configured protocol modules on every accepted channel",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadConfigPath(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		a, err := app.New(cfg, common.BuildInfo{
			Version: version,
			GitHash: gitHash,
			Time:    buildTime,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create app: %v\n", err)
			os.Exit(1)
		}
		if err := a.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start app: %v\n", err)
			os.Exit(1)
		}

		var reloadTotal int
		for {
			select {
			case <-sigs.Terminate():
				a.Stop()
				return

			case <-sigs.Reload():
				reloadTotal++

				// 重载信号只检查配置文件能否重新加载 加载结果不会应用到正在运行的 App
				if _, err := confengine.LoadConfigPath(configPath); err != nil {
					fmt.Fprintf(os.Stderr, "failed to load config (count=%d): %v\n", reloadTotal, err)
					continue
				}
				logger.Infof("reload signal received (count=%d), restart the process to apply listener changes", reloadTotal)
			}
		}
	},
	Example: "# gosocknet serve --config gosocknet.yaml",
}

var configPath string

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "gosocknet.yaml", "Configuration file path")
	rootCmd.AddCommand(serveCmd)
}
