package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blacktop/idig/internal/utils"
	"golang.org/x/sync/errgroup"
)

// Failure identifies one record that could not be extracted and why.
type Failure struct {
	ID           string
	Domain       string
	RelativePath string
	Err          error
}

// Report aggregates per-record extraction outcomes. Every record seen is
// Attempted; Succeeded + Skipped + Failed == Attempted. Skipped covers
// directory nodes (recreated, not copied) and other non-regular entries
// with no backing content.
type Report struct {
	Attempted int
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []Failure // best-effort order when extracting with Jobs > 1
}

// Extractor reconstructs matched records as a mirrored directory tree
// under Output: <Output>/<domain>/<relativePath> (or without the domain
// prefix when Flat is set).
//
// A record's failure never aborts the batch and nothing is rolled back;
// re-running against the same output overwrites previous content
// identically. There are no retries.
type Extractor struct {
	Output string
	Jobs   int  // records extracted concurrently, <=1 means sequential
	Flat   bool // drop the domain prefix from destination paths

	backup *Backup
}

// NewExtractor returns an Extractor writing into output.
func NewExtractor(b *Backup, output string) *Extractor {
	return &Extractor{Output: output, Jobs: 1, backup: b}
}

// Extract copies every record matching c out of the backup and returns
// the per-record accounting. The returned error covers batch-level
// problems only (unreadable catalog, unwritable output root); per-record
// failures land in the report.
func (e *Extractor) Extract(c Criteria) (*Report, error) {
	if err := os.MkdirAll(e.Output, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := max(e.Jobs, 1)

	var mu sync.Mutex
	rep := &Report{}

	eg := new(errgroup.Group)
	eg.SetLimit(jobs)

	walkErr := e.backup.Walk(c, func(r *Record) error {
		eg.Go(func() error {
			out, err := e.extractOne(r)
			mu.Lock()
			defer mu.Unlock()
			rep.Attempted++
			switch out {
			case extracted:
				rep.Succeeded++
			case skipped:
				rep.Skipped++
			case failed:
				rep.Failed++
				rep.Failures = append(rep.Failures, Failure{
					ID:           r.ID,
					Domain:       r.Domain,
					RelativePath: r.RelativePath,
					Err:          err,
				})
			}
			return nil
		})
		return nil
	})

	eg.Wait() // workers never return errors; failures are per-record

	if walkErr != nil {
		return nil, walkErr
	}
	return rep, nil
}

type outcome int

const (
	extracted outcome = iota
	skipped
	failed
)

func (e *Extractor) extractOne(r *Record) (outcome, error) {
	dest := filepath.Join(e.Output, r.Domain, r.RelativePath)
	if e.Flat {
		dest = filepath.Join(e.Output, r.RelativePath)
	}

	switch r.Kind {
	case Directory:
		// no content to copy; recreate the node to preserve structure
		if err := os.MkdirAll(dest, 0o750); err != nil {
			return failed, err
		}
		return skipped, nil
	case RegularFile:
	default:
		return skipped, nil
	}

	src, err := e.backup.ObjectPath(r)
	if err != nil {
		if errors.Is(err, ErrNotStorable) {
			return skipped, nil
		}
		return failed, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return failed, err
	}
	if err := utils.Cp(src, dest); err != nil {
		return failed, err
	}
	return extracted, nil
}
