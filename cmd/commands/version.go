/*
Copyright 2022 The Numaproj Authors.

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

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/numaproj/adclick"
)

func NewVersionCommand() *cobra.Command {
	var short bool
	command := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			v := adclick.GetVersion()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), v.Version)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
		},
	}
	command.Flags().BoolVar(&short, "short", false, "Print the version number only")
	return command
}
