// Package dataset loads the raw observation table from its remote source,
// falling back to a local CSV copy when the network fetch fails.
package dataset

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-analytics/epitrend/internal/config"
	"github.com/meridian-analytics/epitrend/internal/fetcher"
)

// Downloader fetches a URL and returns its body.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// IngestionError reports that both the remote fetch and the local fallback
// failed. Nothing downstream can run without a base table, so callers must
// treat it as fatal.
type IngestionError struct {
	URL          string
	FallbackPath string
	RemoteErr    error
	LocalErr     error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest: remote %q failed (%v); local fallback %q failed (%v)",
		e.URL, e.RemoteErr, e.FallbackPath, e.LocalErr)
}

// Loader obtains the raw observation table.
type Loader struct {
	downloader Downloader
	cfg        config.DatasetConfig
}

// NewLoader creates a Loader reading from the configured source.
func NewLoader(d Downloader, cfg config.DatasetConfig) *Loader {
	return &Loader{downloader: d, cfg: cfg}
}

// columnTypes fixes the parse type of the known observation columns. Empty
// fields in a float column become NaN. Columns not listed here stay strings;
// the pipeline checks for column presence at runtime and never assumes a
// fixed schema.
func columnTypes() map[string]series.Type {
	types := map[string]series.Type{
		"location":  series.String,
		"date":      series.String,
		"iso_code":  series.String,
		"continent": series.String,
	}
	for _, c := range []string{
		"total_cases", "new_cases", "total_deaths", "new_deaths",
		"total_vaccinations", "people_vaccinated", "people_fully_vaccinated",
		"population",
	} {
		types[c] = series.Float
	}
	return types
}

// Load returns the raw observation table. It attempts the remote URL once,
// then the local fallback path; if both fail it returns an *IngestionError
// carrying both causes. Beyond parsing, no validation of column semantics is
// performed here.
func (l *Loader) Load(ctx context.Context) (dataframe.DataFrame, error) {
	log := zap.L().With(zap.String("url", l.cfg.URL), zap.String("fallback", l.cfg.FallbackPath))

	var remoteErr error
	if l.cfg.URL != "" {
		df, err := l.loadRemote(ctx)
		if err == nil {
			log.Info("loaded observations from remote source",
				zap.Int("rows", df.Nrow()),
				zap.Int("columns", df.Ncol()),
			)
			return df, nil
		}
		remoteErr = err
		log.Warn("remote fetch failed, trying local fallback", zap.Error(err))
	} else {
		remoteErr = eris.New("ingest: no remote url configured")
	}

	var localErr error
	if l.cfg.FallbackPath != "" {
		df, err := l.loadLocal()
		if err == nil {
			log.Info("loaded observations from local fallback",
				zap.Int("rows", df.Nrow()),
				zap.Int("columns", df.Ncol()),
			)
			return df, nil
		}
		localErr = err
	} else {
		localErr = eris.New("ingest: no fallback path configured")
	}

	return dataframe.DataFrame{}, &IngestionError{
		URL:          l.cfg.URL,
		FallbackPath: l.cfg.FallbackPath,
		RemoteErr:    remoteErr,
		LocalErr:     localErr,
	}
}

func (l *Loader) loadRemote(ctx context.Context) (dataframe.DataFrame, error) {
	body, err := l.downloader.Download(ctx, l.cfg.URL)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer body.Close() //nolint:errcheck

	return l.readCSV(body)
}

func (l *Loader) loadLocal() (dataframe.DataFrame, error) {
	file, err := os.Open(l.cfg.FallbackPath)
	if err != nil {
		return dataframe.DataFrame{}, eris.Wrap(err, "ingest: open fallback")
	}
	defer file.Close() //nolint:errcheck

	return l.readCSV(file)
}

func (l *Loader) readCSV(r io.Reader) (dataframe.DataFrame, error) {
	decoded, err := fetcher.DecodeCharset(r, l.cfg.Charset)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df := dataframe.ReadCSV(decoded,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columnTypes()),
	)
	if df.Error() != nil {
		return dataframe.DataFrame{}, eris.Wrap(df.Error(), "ingest: parse csv")
	}
	return df, nil
}
