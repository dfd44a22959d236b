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
	"sort"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/idig/internal/utils"
	"github.com/blacktop/idig/pkg/backup"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// addFilterFlags registers the shared search criteria flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("domain-exact", "", "Exact domain match")
	cmd.Flags().String("domain-contains", "", "Partial domain match")
	cmd.Flags().String("path-exact", "", "Exact path match")
	cmd.Flags().String("path-contains", "", "Partial path match")
	cmd.Flags().Bool("or", false, "Combine filters with OR instead of AND")
}

// criteriaFromFlags builds search criteria from the shared flags. An
// omitted flag contributes no predicate; no flags at all matches every
// record.
func criteriaFromFlags(cmd *cobra.Command) backup.Criteria {
	var preds []backup.Predicate
	if v, _ := cmd.Flags().GetString("domain-exact"); v != "" {
		preds = append(preds, backup.DomainExact(v))
	}
	if v, _ := cmd.Flags().GetString("domain-contains"); v != "" {
		preds = append(preds, backup.DomainContains(v))
	}
	if v, _ := cmd.Flags().GetString("path-exact"); v != "" {
		preds = append(preds, backup.PathExact(v))
	}
	if v, _ := cmd.Flags().GetString("path-contains"); v != "" {
		preds = append(preds, backup.PathContains(v))
	}
	anyOf, _ := cmd.Flags().GetBool("or")
	return backup.Criteria{Predicates: preds, Any: anyOf}
}

func init() {
	rootCmd.AddCommand(searchCmd)

	addFilterFlags(searchCmd)
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:           "search BACKUP_DIR",
	Short:         "Search a backup's catalog for files",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Example: heredoc.Doc(`
		# Find all News app files
		❯ idig search --domain-contains news ~/Library/Application\ Support/MobileSync/Backup/00008110-xxxx
		# Find files matching either filter
		❯ idig search --domain-contains news --path-contains .plist --or BACKUP_DIR`),
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		color.NoColor = viper.GetBool("no-color")

		dir, err := utils.PickBackup(args[0])
		if err != nil {
			return err
		}

		b, err := backup.Open(dir)
		if err != nil {
			return fmt.Errorf("failed to open backup: %w", err)
		}
		defer b.Close()

		recs, err := b.Search(criteriaFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if skipped := b.Skipped(); skipped > 0 {
			log.Debugf("skipped %d unusable manifest rows", skipped)
		}
		if len(recs) == 0 {
			log.Warn("no files matched the search criteria")
			return nil
		}

		// catalog order is arbitrary; sort for display only
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].Domain != recs[j].Domain {
				return recs[i].Domain < recs[j].Domain
			}
			return recs[i].RelativePath < recs[j].RelativePath
		})

		data := [][]string{}
		for _, rec := range recs {
			var size string
			if rec.Kind == backup.RegularFile && rec.Size > 0 {
				size = humanize.Bytes(uint64(rec.Size))
			}
			data = append(data, []string{
				rec.ID,
				rec.Domain,
				rec.RelativePath,
				size,
			})
		}

		log.WithField("count", len(recs)).Info("matching files")

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Domain", "Path", "Size"})
		table.AppendBulk(data)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.Render()

		return nil
	},
}
