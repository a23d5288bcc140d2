package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/repository"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/config"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/logger"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

const usage = `expected 'export' or 'import' subcommands
  export  write every link, deleted ones included, as JSON
  import  load links from JSON, skipping slugs that already exist

Only links and their total visit counters are carried over; per-visit
history stays in the source database.`

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportFile := exportCmd.String("file", "", "write JSON here instead of stdout (visit history is not exported)")
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Initialize("info", "console")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	// Logs go to stderr so an export on stdout stays clean JSON.
	logger.InitializeWithWriter(os.Stderr, cfg.LogLevel, "console")

	ctx := context.Background()
	repo, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		out := io.Writer(os.Stdout)
		if *exportFile != "" {
			f, err := os.Create(*exportFile)
			if err != nil {
				log.Fatal().Err(err).Msg("create export file")
			}
			defer f.Close()
			out = f
		}
		n, err := exportLinks(ctx, repo, out)
		if err != nil {
			log.Fatal().Err(err).Msg("export failed")
		}
		log.Info().Int("links", n).Msg("export done")
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		f, err := os.Open(*importFile)
		if err != nil {
			log.Fatal().Err(err).Msg("open import file")
		}
		defer f.Close()
		res, err := importLinks(ctx, repo, f)
		if err != nil {
			log.Fatal().Err(err).Msg("import failed")
		}
		log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("import done")
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
}

// exportLinks writes every link, soft-deleted ones included, as a JSON array.
func exportLinks(ctx context.Context, repo ports.LinkRepository, w io.Writer) (int, error) {
	links, err := repo.Dump(ctx)
	if err != nil {
		return 0, err
	}
	if links == nil {
		links = []domain.Link{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return len(links), encoder.Encode(links)
}

type importResult struct {
	Imported, Skipped, Failed int
}

// importLinks recreates links from an export, keeping slug, owner, counter
// and deletion state. Slugs already present are skipped.
func importLinks(ctx context.Context, repo ports.LinkRepository, r io.Reader) (importResult, error) {
	var res importResult
	var links []domain.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return res, fmt.Errorf("decode: %w", err)
	}

	for _, l := range links {
		slugLog := log.With().Str("slug", l.Slug).Logger()
		if err := services.ValidateSlug(l.Slug); err != nil {
			slugLog.Warn().Err(err).Msg("skipping invalid slug")
			res.Failed++
			continue
		}
		if err := services.ValidateURL(l.OriginalURL); err != nil {
			slugLog.Warn().Err(err).Msg("skipping invalid url")
			res.Failed++
			continue
		}
		if l.OwnerID == "" {
			slugLog.Warn().Err(domain.ErrOwnerRequired).Msg("skipping ownerless link")
			res.Failed++
			continue
		}
		exists, err := repo.SlugExists(ctx, l.Slug)
		if err != nil {
			return res, err
		}
		if exists {
			slugLog.Info().Msg("skipping existing slug")
			res.Skipped++
			continue
		}

		link := l
		link.ID = 0
		if err := repo.Create(ctx, &link); err != nil {
			if errors.Is(err, ports.ErrSlugTaken) {
				res.Skipped++
				continue
			}
			slugLog.Error().Err(err).Msg("failed to import")
			res.Failed++
			continue
		}
		res.Imported++
	}
	return res, nil
}
