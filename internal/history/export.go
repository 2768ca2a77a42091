// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docx-merge/pkg/types"
)

// ExportYAML writes every run, newest first, with its file outcomes to path.
func (s *Store) ExportYAML(ctx context.Context, path string) error {
	reports, err := s.exportReports(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes every run, newest first, with its file outcomes to path.
func (s *Store) ExportJSON(ctx context.Context, path string) error {
	reports, err := s.exportReports(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportReports(ctx context.Context) ([]types.MergeReport, error) {
	stored, err := s.queryReports(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	reports := make([]types.MergeReport, len(stored))
	for i, r := range stored {
		reports[i] = r.MergeReport
		if reports[i].Outcomes, err = s.Files(ctx, r.RunID); err != nil {
			return nil, err
		}
	}
	return reports, nil
}
