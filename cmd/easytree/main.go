// Command easytree imports GEDCOM family trees, stores them in SQLite and
// writes them back out as GEDCOM.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/EasyTree/core/calendar"
	"github.com/FocuswithJustin/EasyTree/core/cas"
	"github.com/FocuswithJustin/EasyTree/core/date"
	"github.com/FocuswithJustin/EasyTree/core/family"
	"github.com/FocuswithJustin/EasyTree/core/gedcom"
	"github.com/FocuswithJustin/EasyTree/core/store"
	"github.com/FocuswithJustin/EasyTree/internal/archive"
	"github.com/FocuswithJustin/EasyTree/internal/logging"
	"github.com/FocuswithJustin/EasyTree/internal/validation"
)

const version = "0.1.0"

// stdout receives command output.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for easytree.
var CLI struct {
	// Global flags
	Config    kong.ConfigFlag `help:"Load flag defaults from a JSON file"`
	LogLevel  string          `name:"log-level" default:"warn" env:"EASYTREE_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	LogFormat string          `name:"log-format" default:"text" env:"EASYTREE_LOG_FORMAT" help:"Log format (text, json)"`

	Import    ImportCmd    `cmd:"" help:"Import a GEDCOM file into a tree database"`
	Convert   ConvertCmd   `cmd:"" help:"Convert a GEDCOM file to its XML tree"`
	Export    ExportCmd    `cmd:"" help:"Export a tree database as GEDCOM"`
	Imports   ImportsCmd   `cmd:"" help:"List the imports recorded in a tree database"`
	Date      DateCmd      `cmd:"" help:"Parse a GEDCOM date"`
	UID       UIDGroup     `cmd:"" name:"uid" help:"Convert between GUIDs and _UID values"`
	Calendars CalendarsCmd `cmd:"" help:"List the supported calendars"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// ImportCmd reads a GEDCOM source and saves the tree it describes.
type ImportCmd struct {
	File                  string `arg:"" help:"GEDCOM file (.ged, .ged.gz, .ged.xz, .tar.gz, .tar.xz)" type:"existingfile"`
	DB                    string `name:"db" default:"easytree.db" env:"EASYTREE_DB" help:"Tree database path" type:"path"`
	Archive               string `env:"EASYTREE_ARCHIVE" help:"Keep a copy of the source in this content-addressed archive" type:"path"`
	TreeOut               string `name:"tree-out" help:"Also write the imported tree as GEDCOM to this path" type:"path"`
	DisableCharacterCheck bool   `help:"Keep bytes outside printable ASCII"`
	ConcatWithSpace       bool   `help:"Insert a space before each CONC value"`
	LivingAge             int    `default:"90" env:"EASYTREE_LIVING_AGE" help:"Age above which a person without a death record is taken as deceased"`
}

func (c *ImportCmd) Run(ctx context.Context) error {
	if err := validation.ValidatePath(c.File); err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	if err := validation.ValidatePath(c.DB); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	if err := checkSource(c.File); err != nil {
		return err
	}

	ctx = logging.WithImportID(ctx, uuid.NewString())
	opts := gedcom.DefaultOptions()
	opts.DisableCharacterCheck = c.DisableCharacterCheck
	opts.ConcatenateWithSpace = c.ConcatWithSpace
	opts.LivingAgeLimit = c.LivingAge

	tree := family.NewTree()
	res, err := gedcom.NewImporter(opts).ImportFile(ctx, tree, c.File)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	db, err := store.Open(ctx, c.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	importID, err := db.Save(ctx, tree, store.Provenance{
		Path:         c.File,
		Fingerprint:  res.Fingerprint,
		People:       res.People,
		Sources:      res.Sources,
		Repositories: res.Repositories,
		Dropped:      res.Stats.Dropped,
	})
	if err != nil {
		return fmt.Errorf("failed to save tree: %w", err)
	}

	fmt.Fprintf(stdout, "Imported: %s\n", c.File)
	fmt.Fprintf(stdout, "  People: %d\n", res.People)
	fmt.Fprintf(stdout, "  Sources: %d\n", res.Sources)
	fmt.Fprintf(stdout, "  Repositories: %d\n", res.Repositories)
	if res.Stats.Dropped > 0 {
		fmt.Fprintf(stdout, "  Dropped lines: %d\n", res.Stats.Dropped)
	}
	fmt.Fprintf(stdout, "  BLAKE3: %s\n", res.Fingerprint)
	fmt.Fprintf(stdout, "Saved to %s (import %d)\n", c.DB, importID)

	if c.Archive != "" {
		data, err := readSource(c.File)
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
		archiveStore, err := cas.NewStore(c.Archive)
		if err != nil {
			return err
		}
		entry, err := archiveStore.StoreNamed(archive.Stem(c.File), data)
		if err != nil {
			return fmt.Errorf("failed to archive source: %w", err)
		}
		logging.InfoContext(ctx, "source_archived", "archive", c.Archive, "blake3", entry.Hash)
		fmt.Fprintf(stdout, "Archived as %s\n", entry.Hash)
	}

	if c.TreeOut != "" {
		if err := writeTree(c.TreeOut, tree); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %s\n", c.TreeOut)
	}
	return nil
}

// readSource returns the uncompressed GEDCOM bytes, the same bytes the
// import fingerprint is taken over.
func readSource(path string) ([]byte, error) {
	src, err := archive.OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// checkSource rejects files whose content is not an importable source.
func checkSource(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	ft, err := validation.DetectSourceType(f, path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	switch ft {
	case validation.FileTypeGEDCOM, validation.FileTypeGzip, validation.FileTypeXZ,
		validation.FileTypeTarGZ, validation.FileTypeTarXZ:
		return nil
	}
	return fmt.Errorf("%s: not a GEDCOM source (%s)", path, ft)
}

// writeTree writes tree as GEDCOM to path. A bundle path gets a single
// .ged entry named after the bundle.
func writeTree(path string, tree *family.Tree) error {
	if err := validation.ValidatePath(path); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if !archive.IsBundle(path) {
		if err := gedcom.NewExporter().ExportFile(path, tree); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := gedcom.NewExporter().Export(&buf, tree); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	name, err := validation.SanitizeFilename(archive.Stem(path) + ".ged")
	if err != nil {
		return fmt.Errorf("invalid bundle name: %w", err)
	}
	return archive.WriteBundle(path, []archive.Entry{{Name: name, Data: buf.Bytes()}})
}

// ConvertCmd writes the XML tree a GEDCOM file parses to.
type ConvertCmd struct {
	File                  string `arg:"" help:"GEDCOM file" type:"existingfile"`
	Out                   string `required:"" help:"Output XML path (.xml, .xml.gz, .xml.xz)" type:"path"`
	DisableCharacterCheck bool   `help:"Keep bytes outside printable ASCII"`
	KeepContinuations     bool   `help:"Leave CONT and CONC lines as separate nodes"`
	ConcatWithSpace       bool   `help:"Insert a space before each CONC value"`
}

func (c *ConvertCmd) Run() error {
	if err := validation.ValidatePath(c.File); err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	if err := validation.ValidatePath(c.Out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	opts := gedcom.DefaultOptions()
	opts.DisableCharacterCheck = c.DisableCharacterCheck
	opts.CombineContinuations = !c.KeepContinuations
	opts.ConcatenateWithSpace = c.ConcatWithSpace

	stats, err := gedcom.ConvertToXML(c.File, c.Out, opts)
	if err != nil {
		return fmt.Errorf("failed to convert: %w", err)
	}
	fmt.Fprintf(stdout, "Converted: %s -> %s\n", c.File, c.Out)
	fmt.Fprintf(stdout, "  Lines: %d\n", stats.Lines)
	fmt.Fprintf(stdout, "  Nodes: %d\n", stats.Nodes)
	if stats.Dropped > 0 {
		fmt.Fprintf(stdout, "  Dropped lines: %d\n", stats.Dropped)
	}
	return nil
}

// ExportCmd writes the stored tree as GEDCOM.
type ExportCmd struct {
	DB  string `name:"db" default:"easytree.db" env:"EASYTREE_DB" help:"Tree database path" type:"existingfile"`
	Out string `required:"" help:"Output path (.ged, .ged.gz, .ged.xz, .tar.gz, .tar.xz)" type:"path"`
}

func (c *ExportCmd) Run(ctx context.Context) error {
	if err := validation.ValidatePath(c.DB); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	db, err := store.Open(ctx, c.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	tree, err := db.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tree: %w", err)
	}
	if err := writeTree(c.Out, tree); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Exported %d people to %s\n", tree.People.Len(), c.Out)
	return nil
}

// ImportsCmd lists the import history of a database.
type ImportsCmd struct {
	DB string `name:"db" default:"easytree.db" env:"EASYTREE_DB" help:"Tree database path" type:"existingfile"`
}

func (c *ImportsCmd) Run(ctx context.Context) error {
	db, err := store.Open(ctx, c.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	records, err := db.Imports(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No imports recorded")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(stdout, "%d  %s  %s\n", r.ID, r.ImportedAt.Format("2006-01-02 15:04:05"), r.Path)
		fmt.Fprintf(stdout, "    people=%d sources=%d repositories=%d dropped=%d\n",
			r.People, r.Sources, r.Repositories, r.Dropped)
		fmt.Fprintf(stdout, "    blake3=%s\n", r.Fingerprint)
	}
	return nil
}

// DateCmd parses a date and shows how it is understood.
type DateCmd struct {
	Text []string `arg:"" help:"Date text, e.g. \"ABT 12 MAR 1850\""`
}

func (c *DateCmd) Run() error {
	text := strings.Join(c.Text, " ")
	d, err := date.ParseDate(text)
	if err != nil {
		return err
	}
	gedcomText, err := d.ToGedcom()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Kind: %s\n", d.Kind())
	fmt.Fprintf(stdout, "GEDCOM: %s\n", gedcomText)
	if descriptor := gedcom.ExtractDescriptor(text); descriptor != "" {
		fmt.Fprintf(stdout, "Descriptor: %s\n", descriptor)
	}
	if anchor, ok := date.Anchor(d); ok {
		fmt.Fprintf(stdout, "Anchor: %s (%s)\n", anchor, anchor.Calendar().ID())
		if fixed, err := anchor.ToFixed(); err == nil {
			fmt.Fprintf(stdout, "Fixed day: %d\n", fixed)
		}
	}
	return nil
}

// UIDGroup contains the _UID conversions.
type UIDGroup struct {
	Encode UIDEncodeCmd `cmd:"" help:"Render a GUID as a _UID value"`
	Decode UIDDecodeCmd `cmd:"" help:"Read a _UID value as a GUID"`
}

// UIDEncodeCmd renders a GUID as a checksummed _UID.
type UIDEncodeCmd struct {
	GUID string `arg:"" optional:"" help:"GUID to encode; a random one when omitted"`
}

func (c *UIDEncodeCmd) Run() error {
	id := uuid.New()
	if c.GUID != "" {
		parsed, err := uuid.Parse(strings.Trim(c.GUID, "{}"))
		if err != nil {
			return fmt.Errorf("invalid GUID: %w", err)
		}
		id = parsed
	}
	uid, err := gedcom.GUIDToUID(id)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, uid)
	return nil
}

// UIDDecodeCmd reads a _UID value back to its GUID.
type UIDDecodeCmd struct {
	UID string `arg:"" help:"_UID value (32 or 36 hex digits)"`
}

func (c *UIDDecodeCmd) Run() error {
	id, err := gedcom.UIDToGUID(c.UID)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, id)
	return nil
}

// CalendarsCmd lists the registered calendars.
type CalendarsCmd struct {
	Year int `help:"Show month and day counts for this year"`
}

func (c *CalendarsCmd) Run() error {
	for _, cal := range calendar.All() {
		fmt.Fprintf(stdout, "%-18s %s\n", cal.ID(), cal.Escape())
		if c.Year == 0 {
			continue
		}
		months := cal.MonthsInYear(c.Year)
		days := 0
		for m := 1; m <= months; m++ {
			days += cal.DaysInMonth(c.Year, m)
		}
		fmt.Fprintf(stdout, "    %d: %d months, %d days, leap=%v\n", c.Year, months, days, cal.IsLeapYear(c.Year))
	}
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "easytree version %s\n", version)
	return nil
}

// initLogging configures the global logger from the global flags.
func initLogging(level, format string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	fmtt, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.InitLogger(lvl, fmtt)
	return nil
}

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx := kong.Parse(&CLI,
		kong.Name("easytree"),
		kong.Description("EasyTree - GEDCOM import, storage and export"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "/etc/easytree.json", "~/.config/easytree.json"),
		kong.BindTo(runCtx, (*context.Context)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(initLogging(CLI.LogLevel, CLI.LogFormat))
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
