package bootstrap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/config"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/embedding"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/knowledge"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/utils"
	"go.uber.org/zap"

	"gorm.io/gorm"
)

// Options controls database initialization behavior
type Options struct {
	// InitSQLPath points to a .sql script file (optional); skip if empty
	InitSQLPath string
	// AutoMigrate whether to execute entity migration
	AutoMigrate bool
	// SeedNonProd whether to write demo data in non-production environments
	SeedNonProd bool
	// KnowledgeStore receives demo chunks when it is the in-memory provider,
	// embedded with Embedder so they match resolver queries
	KnowledgeStore knowledge.VectorStore
	Embedder       embedding.Embedder
}

// SetupDatabase unified entry: connect database -> run initialization SQL -> migrate entities -> (non-production) seed demo data
func SetupDatabase(logWriter io.Writer, opts *Options) (*gorm.DB, error) {
	if opts == nil {
		opts = &Options{AutoMigrate: true, SeedNonProd: true}
	}

	// 1) Connect to database
	db, err := initDBConn(logWriter)
	if err != nil {
		logger.Error("init database failed", zap.Error(err))
		return nil, err
	}

	// 2) Optional: execute initialization SQL
	if opts.InitSQLPath != "" {
		if err := RunInitSQL(db, opts.InitSQLPath); err != nil {
			logger.Error("run init sql failed", zap.String("path", opts.InitSQLPath), zap.Error(err))
			return nil, err
		}
	}

	// 3) Migrate entities
	if opts.AutoMigrate {
		if err := RunMigrations(db); err != nil {
			logger.Error("migration failed", zap.Error(err))
			return nil, err
		}
		logger.Info("migration success",
			zap.String("database", config.GlobalConfig.DBDriver),
		)
	}

	// 4) Non-production: demo data
	if opts.SeedNonProd && config.GlobalConfig.Mode != "production" {
		service := SeedService{
			db:       db,
			store:    opts.KnowledgeStore,
			embedder: opts.Embedder,
		}
		if err := service.SeedAll(); err != nil {
			logger.Error("seed failed", zap.Error(err))
			return nil, err
		}
	}

	logger.Info("system bootstrap - database is initialization complete")
	return db, nil
}

// initDBConn creates *gorm.DB based on global configuration
func initDBConn(logWriter io.Writer) (*gorm.DB, error) {
	return utils.InitDatabase(logWriter, config.GlobalConfig.DBDriver, config.GlobalConfig.DSN)
}

// RunInitSQL applies a .sql script inside one transaction so a bad statement
// leaves the schema untouched. Scripts should still use IF NOT EXISTS guards
// because the file runs on every boot.
func RunInitSQL(db *gorm.DB, sqlFilePath string) error {
	f, err := os.Open(sqlFilePath)
	if err != nil {
		return err
	}
	defer f.Close()

	stmts, err := splitSQLStatements(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", sqlFilePath, err)
	}
	if len(stmts) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for i, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		logger.Info("init sql applied", zap.String("path", sqlFilePath), zap.Int("statements", len(stmts)))
		return nil
	})
}

// splitSQLStatements breaks a script on lines ending in ';'. Comment-only
// lines (-- or #) are dropped; a trailing statement without ';' is kept.
func splitSQLStatements(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		stmts   []string
		pending []string
	)
	flush := func() {
		if stmt := strings.TrimSpace(strings.Join(pending, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
		pending = pending[:0]
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}
		pending = append(pending, line)
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return stmts, nil
}

// RunMigrations executes entity migration
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	return utils.MakeMigrates(db, []any{
		&models.CallRecord{},
		&models.QAPair{},
	})
}
