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

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/idig/internal/utils"
	"github.com/blacktop/idig/pkg/backup"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(extractCmd)

	addFilterFlags(extractCmd)
	extractCmd.Flags().StringP("output", "o", "", "Folder to extract files into")
	extractCmd.Flags().IntP("jobs", "j", 1, "Files to extract concurrently")
	extractCmd.Flags().Bool("flat", false, "Extract without the domain prefix")
	extractCmd.MarkFlagRequired("output")
	extractCmd.MarkFlagDirname("output")
}

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:           "extract BACKUP_DIR",
	Short:         "Extract matching files out of a backup",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: heredoc.Doc(`
		# Extract every SMS attachment
		❯ idig extract --domain-exact MediaDomain --path-contains Attachments -o ./out BACKUP_DIR
		# Extract a whole app domain with 8 workers
		❯ idig extract --domain-contains com.apple.news -j8 -o ./out BACKUP_DIR`),
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		color.NoColor = viper.GetBool("no-color")

		output, _ := cmd.Flags().GetString("output")
		jobs, _ := cmd.Flags().GetInt("jobs")
		flat, _ := cmd.Flags().GetBool("flat")

		dir, err := utils.PickBackup(args[0])
		if err != nil {
			return err
		}

		b, err := backup.Open(dir)
		if err != nil {
			return fmt.Errorf("failed to open backup: %w", err)
		}
		defer b.Close()

		ex := backup.NewExtractor(b, output)
		ex.Jobs = jobs
		ex.Flat = flat

		rep, err := ex.Extract(criteriaFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}

		log.WithFields(log.Fields{
			"attempted": rep.Attempted,
			"extracted": rep.Succeeded,
			"skipped":   rep.Skipped,
			"failed":    rep.Failed,
		}).Info("extraction finished")

		if len(rep.Failures) > 0 {
			data := [][]string{}
			for _, f := range rep.Failures {
				data = append(data, []string{
					f.Domain,
					f.RelativePath,
					f.Err.Error(),
				})
			}
			table := tablewriter.NewWriter(os.Stderr)
			table.SetHeader([]string{"Domain", "Path", "Error"})
			table.AppendBulk(data)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.Render()
			log.Warnf("%d of %d files failed to extract (re-run with a narrower search)", rep.Failed, rep.Attempted)
		}

		return nil
	},
}
