package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"glyph-dict-activation/internal/config"
	"glyph-dict-activation/internal/domain/model"
	"glyph-dict-activation/internal/domain/ports/repository"
	pg "glyph-dict-activation/internal/infra/db/postgres"
	"glyph-dict-activation/internal/infra/logging"
	"glyph-dict-activation/internal/infra/security"
	"glyph-dict-activation/internal/infra/worker"
	"glyph-dict-activation/internal/usecase"
)

const (
	importBatchSize = 500
	importWorkers   = 4
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	dictPath := flag.String("dict", "", "path to dictionary JSON file (map of glyph -> entry)")
	codeCount := flag.Int("codes", 0, "number of activation codes to seed")
	codePlan := flag.String("plan", "trial", "plan type for seeded codes")
	adminPassword := flag.String("admin-password", "", "print a password hash for admin.password_hash and exit")
	flag.Parse()

	if *adminPassword != "" {
		hash, err := security.HashPassword(*adminPassword)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, importWorkers)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	logger.Info().Msg("schema ensured")

	glyphRepo := pg.NewGlyphRepo(pool)
	if *dictPath != "" {
		n, err := importDictionary(ctx, glyphRepo, *dictPath, logger)
		if err != nil {
			log.Fatalf("import dictionary: %v", err)
		}
		logger.Info().Int("entries", n).Msg("dictionary imported")
	}

	if *codeCount > 0 {
		codeRepo := pg.NewCodeRepo(pool)
		bindingRepo := pg.NewBindingRepo(pool)
		tm := pg.NewTxManager(pool)
		uc := usecase.NewActivationUseCase(codeRepo, bindingRepo, tm, cfg.Plans, cfg.Limits.GenerateMax, logger)
		codes, err := uc.Generate(ctx, *codeCount, *codePlan)
		if err != nil {
			log.Fatalf("generate codes: %v", err)
		}
		for _, c := range codes {
			fmt.Println(c)
		}
	}
}

// importDictionary loads the glyph JSON file (the same shape the content
// pipeline emits: a map keyed by glyph) and upserts it in pooled batches.
func importDictionary(ctx context.Context, repo repository.GlyphRepository, path string, logger *zerolog.Logger) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var docs map[string]*model.GlyphEntry
	if err := json.Unmarshal(raw, &docs); err != nil {
		return 0, fmt.Errorf("parse dictionary: %w", err)
	}

	entries := make([]*model.GlyphEntry, 0, len(docs))
	for glyph, e := range docs {
		if e == nil {
			e = &model.GlyphEntry{}
		}
		e.Glyph = glyph
		entries = append(entries, e)
	}

	wp := worker.NewPool(importWorkers, logger)
	wp.Start(ctx)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for start := 0; start < len(entries); start += importBatchSize {
		end := start + importBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]
		wg.Add(1)
		if err := wp.Submit(func(ctx context.Context) error {
			defer wg.Done()
			if err := repo.UpsertBatch(ctx, repository.NoTX, batch); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return err
			}
			return nil
		}); err != nil {
			wg.Done()
			return 0, err
		}
	}
	wg.Wait()
	wp.Stop()

	if firstErr != nil {
		return 0, firstErr
	}
	return len(entries), nil
}
