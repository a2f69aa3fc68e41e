package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trendjack/core/internal/app"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/database"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/pipeline/run"
	"github.com/trendjack/core/internal/modules/processing/markdown"
	"github.com/trendjack/core/internal/modules/processing/transcript"
	"github.com/trendjack/core/internal/modules/storage/artifact"
	"github.com/trendjack/core/internal/pkg/proctitle"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

type generateOptions struct {
	transcriptPath string
	urls           []string
	trendContext   string
	companyType    string
	goal           string
	personality    string
	topics         []string
	maxTopics      int
	format         string
	out            string
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once from the command line and write a report",
		Example: "  trendjack generate --transcript call.docx --url https://x.com/a/status/1 " +
			"--trend \"Super Bowl blackout\" --format markdown --out report.md",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			log := root.logger(cfg)
			defer log.Sync()
			_ = proctitle.Set("generate")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return opts.run(ctx, cfg, log, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.transcriptPath, "transcript", "t", "", "transcript file (.txt, .md, .pdf, .docx)")
	f.StringArrayVarP(&opts.urls, "url", "u", nil, "trending URL, repeatable")
	f.StringVar(&opts.trendContext, "trend", "", "short description of the trend")
	f.StringVar(&opts.companyType, "company", "", "company type (default pipeline.company_type)")
	f.StringVar(&opts.goal, "goal", "", "promotional goal (default pipeline.promotional_goal)")
	f.StringVar(&opts.personality, "personality", "", "brand personality (default pipeline.brand_personality)")
	f.StringArrayVar(&opts.topics, "topic", nil, "business topic to write about, repeatable; extracted from the transcript when omitted")
	f.IntVar(&opts.maxTopics, "topics", 0, "number of aligned topics to auto-select (default pipeline.auto_select)")
	f.StringVarP(&opts.format, "format", "f", "markdown", "output format: markdown, html or json")
	f.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (o *generateOptions) validate() error {
	if strings.TrimSpace(o.transcriptPath) == "" {
		return fmt.Errorf("--transcript is required")
	}
	if len(o.urls) == 0 {
		return fmt.Errorf("at least one --url is required")
	}
	switch o.format {
	case "markdown", "md", "html", "json":
	default:
		return fmt.Errorf("--format must be markdown, html or json")
	}
	return nil
}

func (o *generateOptions) run(ctx context.Context, cfg *config.AppConfig, log *zap.Logger, stdout io.Writer) error {
	doc, err := readTranscript(o.transcriptPath)
	if err != nil {
		return err
	}

	// The CLI keeps its state in memory and runs without Redis.
	db, err := database.Open(config.DriverSQLite, ":memory:", logger.Silent)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	store, err := artifact.New(cfg, log)
	if err != nil {
		log.Warn("artifact store unavailable, screenshots are skipped", zap.Error(err))
		store = nil
	}
	engine := app.NewEngine(cfg, db, nil, nil, store, log)
	svc := engine.Runs

	tr, err := svc.CreateTranscript(ctx, doc)
	if err != nil {
		return err
	}
	in := run.Input{
		TranscriptID:     tr.ID,
		CompanyType:      o.companyType,
		Goal:             o.goal,
		BrandPersonality: o.personality,
		TrendContext:     o.trendContext,
		URLs:             o.urls,
	}
	for _, t := range o.topics {
		in.Topics = append(in.Topics, models.TopicSelection{Topic: t})
	}
	if len(in.Topics) == 0 {
		if in.Topics, err = o.selectTopics(ctx, svc, tr.ID, cfg, log); err != nil {
			return err
		}
	}

	r, err := svc.RunNow(ctx, in, func(ev run.Event) {
		log.Info("progress", zap.String("step", ev.Step), zap.String("topic", ev.Topic), zap.Float64("progress", ev.Progress), zap.String("message", ev.Message))
	})
	if err != nil {
		return err
	}
	posts, err := svc.PostsForRun(r.ID)
	if err != nil {
		return err
	}

	body, err := renderReport(o.format, r, posts)
	if err != nil {
		return err
	}
	if o.out == "" {
		_, err = stdout.Write(body)
		return err
	}
	if dir := filepath.Dir(o.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(o.out, body, 0o644); err != nil {
		return err
	}
	log.Info("report written", zap.String("path", o.out), zap.Int("posts", len(posts)))
	return nil
}

func (o *generateOptions) selectTopics(ctx context.Context, svc *run.Service, transcriptID string, cfg *config.AppConfig, log *zap.Logger) ([]models.TopicSelection, error) {
	rows, ex, err := svc.ExtractTopics(ctx, transcriptID, o.goal)
	if err != nil {
		return nil, err
	}
	if ex.Mock {
		log.Warn("llm is not configured, using sample topics")
	}
	n := o.maxTopics
	if n <= 0 {
		n = cfg.Pipeline.AutoSelect
	}
	aligned, err := svc.ListTopics(transcriptID, true)
	if err != nil {
		return nil, err
	}
	if len(aligned) == 0 {
		return nil, fmt.Errorf("none of the %d extracted topics aligns with the goal; pass --topic explicitly", len(rows))
	}
	if n > 0 && len(aligned) > n {
		aligned = aligned[:n]
	}
	for _, t := range aligned {
		log.Info("topic selected", zap.String("topic", t.Topic), zap.Float64("confidence", t.Confidence))
	}
	return run.Selections(aligned), nil
}

func readTranscript(path string) (transcript.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return transcript.Document{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return transcript.Document{}, err
	}
	return transcript.Extract(filepath.Base(path), f, info.Size())
}

type jsonReport struct {
	Run   *models.RunModel   `json:"run"`
	Posts []models.PostModel `json:"posts"`
}

func renderReport(format string, r *models.RunModel, posts []models.PostModel) ([]byte, error) {
	report := run.Report(r)
	switch format {
	case "json":
		return json.MarshalIndent(jsonReport{Run: r, Posts: posts}, "", "  ")
	case "html":
		md := markdown.RunMarkdown(report)
		return []byte(markdown.RenderHTML(md, markdown.DocumentOptions{Title: report.Title})), nil
	default:
		return []byte(markdown.RunMarkdown(report)), nil
	}
}
