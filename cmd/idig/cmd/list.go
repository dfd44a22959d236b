/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/idig/pkg/backup"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:           "list [MOBILESYNC_ROOT]",
	Aliases:       []string{"ls"},
	Short:         "List device backups",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: heredoc.Doc(`
		# List backups in the default MobileSync location (macOS)
		❯ idig list
		# List backups under a copied MobileSync folder
		❯ idig list ./MobileSync/Backup`),
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		color.NoColor = viper.GetBool("no-color")

		var err error
		var root string
		if len(args) > 0 {
			root = filepath.Clean(args[0])
		} else {
			root, err = defaultBackupRoot()
			if err != nil {
				return err
			}
		}

		backups, err := backup.List(root)
		if err != nil {
			return fmt.Errorf("failed to list backups: %w", err)
		}
		if len(backups) == 0 {
			log.Warnf("no backups found in %s", root)
			return nil
		}

		data := [][]string{}
		for _, info := range backups {
			data = append(data, []string{
				info.UDID,
				info.DeviceName,
				info.ProductType,
				info.ProductVersion,
				humanize.Time(info.LastBackupDate),
			})
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"UDID", "Device", "Product", "iOS", "Last Backup"})
		table.AppendBulk(data)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.Render()

		return nil
	},
}

func defaultBackupRoot() (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("no default backup location on %s: supply MOBILESYNC_ROOT", runtime.GOOS)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Library/Application Support/MobileSync/Backup"), nil
}
