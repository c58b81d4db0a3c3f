// Command quranctl builds the structured verse corpus from extracted page
// text and maintains the cross-reference taxonomy: parsing the index,
// flattening it for translation and rebuilding it from translated payloads.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"quran-corpus/internal/config"
	"quran-corpus/internal/database"
	"quran-corpus/internal/index"
	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"
	"quran-corpus/internal/processor"
	"quran-corpus/internal/refs"
	"quran-corpus/internal/structurer"
	"quran-corpus/internal/taxonomy"
	"quran-corpus/internal/translation"
	"quran-corpus/internal/verify"
)

// Globals are the flags shared by every command
type Globals struct {
	Config    string `name:"config" short:"c" help:"Pipeline configuration file (JSON)" type:"existingfile"`
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format"`
	DB        string `name:"db" help:"Database: postgres:// URL or SQLite file path"`

	logger *slog.Logger `kong:"-"`
}

// CLI defines the command-line interface for quranctl.
type CLI struct {
	Globals

	Corpus       CorpusCmd       `cmd:"" help:"Structure extracted pages into the verse corpus"`
	Index        IndexCmd        `cmd:"" help:"Parse index text into the cross-reference taxonomy"`
	Flatten      FlattenCmd      `cmd:"" help:"Flatten a taxonomy into a translation payload"`
	Reconstruct  ReconstructCmd  `cmd:"" help:"Rebuild a taxonomy from a flattened payload"`
	Relations    RelationsCmd    `cmd:"" help:"Build the reference relation map of a taxonomy"`
	Verify       VerifyCmd       `cmd:"" help:"Check per-chapter verse counts of a corpus"`
	TranslateMap TranslateMapCmd `cmd:"" name:"translate-map" help:"Translate the path segments of a flattened payload"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("quranctl"),
		kong.Description("Verse corpus and cross-reference taxonomy tools"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, ".quranctl.json", "~/.quranctl.json"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	cli.logger = logging.Init(os.Stderr, cli.LogLevel, cli.LogFormat)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx.BindTo(runCtx, (*context.Context)(nil))
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// load reads the configuration file, or Defaults when none is given
func (g *Globals) load() (config.Config, error) {
	if g.Config == "" {
		return config.Defaults(), nil
	}
	return config.LoadJSON(g.Config, nil)
}

func (g *Globals) log() *slog.Logger {
	return logging.OrDefault(g.logger)
}

// openStore connects to the configured database and initializes its schema
func (g *Globals) openStore(ctx context.Context) (database.Store, error) {
	store, err := database.Open(ctx, g.DB)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	g.log().Info("database initialized")
	return store, nil
}

func (g *Globals) less(cfg config.Config) (taxonomy.Less, error) {
	less, err := taxonomy.LessFor(cfg.Collation)
	if err != nil {
		return nil, fmt.Errorf("invalid collation %q: %w", cfg.Collation, err)
	}
	return less, nil
}

func (g *Globals) reconstructor(cfg config.Config) (*taxonomy.Reconstructor, error) {
	less, err := g.less(cfg)
	if err != nil {
		return nil, err
	}
	return taxonomy.NewReconstructor(
		taxonomy.WithLogger(g.log()),
		taxonomy.WithMerger(refs.NewMerger(g.log())),
		taxonomy.WithLess(less),
	), nil
}

// CorpusCmd structures extracted pages into the corpus.
type CorpusCmd struct {
	Input  string `arg:"" help:"PDF file or JSON array of {page, text}" type:"existingfile"`
	Output string `name:"output" short:"o" help:"Output file (default stdout)"`
	Start  int    `name:"start" help:"First page (overrides config)"`
	End    int    `name:"end" help:"Last page, 0 for all (overrides config)"`
}

func (c *CorpusCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Start > 0 {
		cfg.StartPage = c.Start
	}
	if c.End > 0 {
		cfg.EndPage = c.End
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := g.log()
	logger.Info("processing pages", "input", c.Input, "start", cfg.StartPage, "end", cfg.EndPage, "workers", cfg.Workers)
	startTime := time.Now()

	proc := processor.NewPDFProcessor(cfg.Substitutions, logger)
	pages, err := readPages(proc, c.Input, cfg)
	if err != nil {
		return err
	}
	extractDuration := time.Since(startTime)

	s := structurer.New(
		structurer.WithExceptions(cfg.PageExceptions),
		structurer.WithLogger(logger),
	)

	structureStart := time.Now()
	var corpus *models.Corpus
	if cfg.Workers > 1 {
		corpus, err = s.AssembleConcurrent(ctx, pages, cfg.Range(), cfg.Workers)
	} else {
		corpus, err = s.Assemble(pages, cfg.Range())
	}
	if err != nil {
		return err
	}
	structureDuration := time.Since(structureStart)

	if err := writeJSON(c.Output, corpus); err != nil {
		return err
	}

	if g.DB != "" {
		store, err := g.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		stored, err := database.StoreCorpus(ctx, store, corpus, logger)
		if err != nil {
			return err
		}
		logger.Info("stored pages", "stored", stored, "total", corpus.Len())
	}

	logger.Info("completed processing",
		"total", time.Since(startTime).Round(time.Millisecond),
		"extraction", extractDuration.Round(time.Millisecond),
		"structuring", structureDuration.Round(time.Millisecond))
	printCorpusStatistics(logger, corpus)
	return nil
}

func readPages(proc *processor.PDFProcessor, path string, cfg config.Config) ([]models.PageRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return proc.ExtractPages(path, cfg.StartPage, cfg.EndPage)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return proc.LoadPageTexts(f)
}

// printCorpusStatistics logs counts of the structured corpus
func printCorpusStatistics(logger *slog.Logger, c *models.Corpus) {
	var verses, titles, headers, continuations, empty int
	for _, p := range c.Pages() {
		verses += p.Verses.Len()
		titles += p.Titles.Len()
		headers += len(p.ChapterHeaders)
		if _, ok := p.Verses.Get("0"); ok {
			continuations++
		}
		if p.Verses.Len() == 0 {
			empty++
		}
	}

	logger.Info("corpus statistics",
		"pages", c.Len(),
		"verses", verses,
		"titles", titles,
		"chapter_headers", headers,
		"continued_pages", continuations,
		"pages_without_verses", empty)
}

// IndexCmd parses the index section into a taxonomy.
type IndexCmd struct {
	Input    string `arg:"" help:"Index text file, or JSON array of {page, text}" type:"existingfile"`
	Output   string `name:"output" short:"o" help:"Output file (default stdout)"`
	Flat     bool   `name:"flat" help:"Write the flattened payload instead of the tree"`
	Resource string `name:"resource" default:"index" help:"Resource name when storing to the database"`
}

func (c *IndexCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	less, err := g.less(cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}

	p := index.NewParser(
		index.WithMaxPage(cfg.MaxPage),
		index.WithLogger(g.log()),
		index.WithLess(less),
	)

	var root *taxonomy.Node
	if strings.EqualFold(filepath.Ext(c.Input), ".json") {
		proc := processor.NewPDFProcessor(cfg.Substitutions, g.log())
		records, err := proc.LoadPageTexts(strings.NewReader(string(data)))
		if err != nil {
			return err
		}
		blocks := make([]string, 0, len(records))
		for _, r := range records {
			blocks = append(blocks, strings.Join(r.RawLines, "\n"))
		}
		root, err = p.ParsePages(blocks)
		if err != nil {
			return err
		}
	} else {
		root, err = p.ParseLines(strings.Split(string(data), "\n"))
		if err != nil {
			return err
		}
	}
	g.log().Info("parsed index", "categories", root.Len())

	if !c.Flat && g.DB == "" {
		return writeJSON(c.Output, root)
	}

	entries, err := taxonomy.Flatten(root)
	if err != nil {
		return err
	}
	if err := storeTaxonomy(ctx, g, c.Resource, entries); err != nil {
		return err
	}
	if c.Flat {
		return writeJSON(c.Output, models.FlattenedPayload(entries))
	}
	return writeJSON(c.Output, root)
}

// FlattenCmd writes the translation payload of a taxonomy.
type FlattenCmd struct {
	Input    string `arg:"" help:"Taxonomy JSON file" type:"existingfile"`
	Output   string `name:"output" short:"o" help:"Output file (default stdout)"`
	Resource string `name:"resource" default:"index" help:"Resource name when storing to the database"`
}

func (c *FlattenCmd) Run(ctx context.Context, g *Globals) error {
	root, err := readTree(c.Input)
	if err != nil {
		return err
	}
	entries, err := taxonomy.Flatten(root)
	if err != nil {
		return err
	}
	g.log().Info("flattened taxonomy", "entries", len(entries))

	if err := storeTaxonomy(ctx, g, c.Resource, entries); err != nil {
		return err
	}
	return writeJSON(c.Output, models.FlattenedPayload(entries))
}

// ReconstructCmd rebuilds a taxonomy from a payload file or a stored resource.
type ReconstructCmd struct {
	Input    string `arg:"" optional:"" help:"Flattened payload JSON file" type:"existingfile"`
	Output   string `name:"output" short:"o" help:"Output file (default stdout)"`
	Resource string `name:"resource" default:"index" help:"Resource to load when no input file is given"`
}

func (c *ReconstructCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}

	var entries []models.FlattenedEntry
	switch {
	case c.Input != "":
		entries, err = readPayload(c.Input)
	case g.DB != "":
		entries, err = loadTaxonomy(ctx, g, c.Resource)
	default:
		return fmt.Errorf("an input file or --db is required")
	}
	if err != nil {
		return err
	}

	r, err := g.reconstructor(cfg)
	if err != nil {
		return err
	}
	root, err := r.Reconstruct(entries)
	if err != nil {
		return err
	}
	g.log().Info("reconstructed taxonomy", "entries", len(entries), "categories", root.Len())
	return writeJSON(c.Output, root)
}

// RelationsCmd writes the reference -> related references map. Taxonomy JSON
// files link the references of each leaf; other files are read as raw index
// text where every ';' group links its references.
type RelationsCmd struct {
	Inputs []string `arg:"" help:"Taxonomy JSON or raw index text files, merged in order" type:"existingfile"`
	Output string   `name:"output" short:"o" help:"Output file (default stdout)"`
}

func (c *RelationsCmd) Run(g *Globals) error {
	all := refs.RelationMap{}
	for _, path := range c.Inputs {
		if !strings.EqualFold(filepath.Ext(path), ".json") {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			all.Merge(refs.Relations(string(data)))
			continue
		}

		root, err := readTree(path)
		if err != nil {
			return err
		}
		root.Walk(func(_ []string, value string) {
			all.Link(refs.Literals(value))
		})
	}
	g.log().Info("built relation map", "references", len(all))
	return writeJSON(c.Output, all)
}

// VerifyCmd compares per-chapter verse counts with the configured table.
type VerifyCmd struct {
	Input string `arg:"" help:"Corpus JSON file" type:"existingfile"`
}

func (c *VerifyCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	expected, err := cfg.Expected()
	if err != nil {
		return err
	}
	if len(expected) == 0 {
		return fmt.Errorf("no expected_verses in configuration")
	}

	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}
	var corpus models.Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return fmt.Errorf("failed to decode corpus: %w", err)
	}

	mismatches := verify.Verify(&corpus, expected)
	for _, m := range mismatches {
		fmt.Println(m)
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d chapters with unexpected verse counts", len(mismatches))
	}
	g.log().Info("all verse counts match", "chapters", len(expected))
	return nil
}

// TranslateMapCmd translates a flattened payload, or a whole taxonomy, through an Ollama model.
type TranslateMapCmd struct {
	Input    string `arg:"" help:"Flattened payload JSON file, or taxonomy JSON with --tree" type:"existingfile"`
	Output   string `name:"output" short:"o" help:"Output file (default stdout)"`
	Language string `name:"language" short:"l" required:"" help:"Target language"`
	Model    string `name:"model" default:"llama3" help:"Ollama model"`
	Ollama   string `name:"ollama" help:"Ollama host (default uses OLLAMA_HOST env var)"`
	Workers  int    `name:"workers" default:"4" help:"Concurrent translation requests"`
	Tree     bool   `name:"tree" help:"Read a taxonomy and write the translated taxonomy, merging colliding entries"`
	Resource string `name:"resource" help:"Resource name when storing the translated payload to the database"`
}

func (c *TranslateMapCmd) Run(ctx context.Context, g *Globals) error {
	gen, err := translation.NewOllamaGenerator(c.Ollama, c.Model)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	tr := translation.NewTranslator(gen, c.Language, c.Workers, g.log())

	resource := c.Resource
	if resource == "" {
		resource = "index." + c.Language
	}

	if c.Tree {
		return c.translateTree(ctx, g, tr, resource)
	}

	entries, err := readPayload(c.Input)
	if err != nil {
		return err
	}
	translated, err := tr.TranslatePayload(ctx, entries)
	if err != nil {
		return err
	}
	if err := storeTaxonomy(ctx, g, resource, translated); err != nil {
		return err
	}
	return writeJSON(c.Output, models.FlattenedPayload(translated))
}

func (c *TranslateMapCmd) translateTree(ctx context.Context, g *Globals, tr *translation.Translator, resource string) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	r, err := g.reconstructor(cfg)
	if err != nil {
		return err
	}
	root, err := readTree(c.Input)
	if err != nil {
		return err
	}

	translated, err := tr.TranslateTree(ctx, root, r)
	if err != nil {
		return err
	}

	if g.DB != "" {
		entries, err := taxonomy.Flatten(translated)
		if err != nil {
			return err
		}
		if err := storeTaxonomy(ctx, g, resource, entries); err != nil {
			return err
		}
	}
	return writeJSON(c.Output, translated)
}

func storeTaxonomy(ctx context.Context, g *Globals, resource string, entries []models.FlattenedEntry) error {
	if g.DB == "" {
		return nil
	}
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.StoreTaxonomy(ctx, resource, entries); err != nil {
		return err
	}
	g.log().Info("stored taxonomy", "resource", resource, "entries", len(entries))
	return nil
}

func loadTaxonomy(ctx context.Context, g *Globals, resource string) ([]models.FlattenedEntry, error) {
	store, err := g.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LoadTaxonomy(ctx, resource)
}

func readTree(path string) (*taxonomy.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root taxonomy.Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy %s: %w", path, err)
	}
	return &root, nil
}

func readPayload(path string) ([]models.FlattenedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payload models.FlattenedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload %s: %w", path, err)
	}
	return payload, nil
}

// writeJSON writes v indented to path, or to stdout when path is empty
func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
