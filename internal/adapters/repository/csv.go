package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/bazaar/internal/domain/model"
)

// Header is the first CSV line.
var Header = []string{"#", "Name", "Type", "Role", "Tier", "Batting", "Bowling", "Fielding", "Overall", "Price"}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRows, err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Position),
			r.Name,
			r.Category.String(),
			r.Role.String(),
			strconv.Itoa(int(r.Tier)),
			formatRating(r.Batting),
			formatRating(r.Bowling),
			formatRating(r.Fielding),
			strconv.FormatFloat(r.Overall, 'f', 2, 64),
			strconv.FormatInt(int64(r.Price), 10),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteRows, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRows, err)
	}
	return nil
}

func formatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FileSink writes <dir>/<team>_roster.csv.
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Name identifies the sink in metrics and logs.
func (s *FileSink) Name() string { return "csv" }

// Path returns the file written for team.
func (s *FileSink) Path(team model.TeamID) string {
	return filepath.Join(s.dir, string(team)+"_roster.csv")
}

// Export replaces the team's file atomically.
func (s *FileSink) Export(_ context.Context, team model.TeamID, rows []Row) error {
	tmp, err := os.CreateTemp(s.dir, string(team)+"-*.csv")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRows, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRows, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(team)); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteRows, err)
	}
	return nil
}
