package check

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/datalens/internal/config"
	"github.com/nao1215/datalens/internal/model"
	"github.com/nao1215/datalens/internal/worker"
)

type fingerprintResult struct {
	hash string
	err  error
}

// Duplicates groups paths sharing a fingerprint under strategy.
//
// Groups have at least two members, are sorted by size descending then
// hash ascending, and hold sorted paths. Files that cannot be read are
// returned as failures and belong to no group.
func (c *Checker) Duplicates(ctx context.Context, paths []string, strategy config.HashStrategy) ([]model.DuplicateGroup, []model.FileError, error) {
	if !strategy.Valid() {
		return nil, nil, fmt.Errorf("%w: %s", config.ErrUnknownHashStrategy, strategy)
	}

	results, err := worker.Map(ctx, c.workers, paths, func(_ context.Context, p string) fingerprintResult {
		h, err := Fingerprint(c.fs, p, strategy)
		return fingerprintResult{hash: h, err: err}
	})
	if err != nil {
		return nil, nil, err
	}

	failures := []model.FileError{}
	byHash := make(map[string][]string)
	for i, r := range results {
		if r.err != nil {
			c.logger.Debug("fingerprint failed", "path", paths[i], "error", r.err)
			failures = append(failures, model.FileError{Path: paths[i], Error: r.err.Error()})
			continue
		}
		byHash[r.hash] = append(byHash[r.hash], paths[i])
	}
	return GroupDuplicates(byHash), failures, nil
}

// GroupDuplicates turns a fingerprint index into sorted duplicate groups.
func GroupDuplicates(byHash map[string][]string) []model.DuplicateGroup {
	groups := []model.DuplicateGroup{}
	for hash, members := range byHash {
		if len(members) < 2 {
			continue
		}
		sorted := append([]string(nil), members...)
		sort.Strings(sorted)
		groups = append(groups, model.DuplicateGroup{Hash: hash, Paths: sorted})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Paths) != len(groups[j].Paths) {
			return len(groups[i].Paths) > len(groups[j].Paths)
		}
		return groups[i].Hash < groups[j].Hash
	})
	return groups
}
