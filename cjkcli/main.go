package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/cjkmetrics"
	"github.com/npillmayer/cjkmetrics/ot"
	"github.com/npillmayer/cjkmetrics/otmetrics"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
)

// tracer traces with key 'cjkmetrics'
func tracer() tracing.Trace {
	return tracing.Select("cjkmetrics")
}

func main() {
	initDisplay()

	// set up logging
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":     "go",
		"trace.cjkmetrics":    "Info",
		"trace.font.opentype": "Info",
		"trace.font.metrics":  "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Printf("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	// command line flags
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Font to load")
	flag.Parse()
	tracer().SetTraceLevel(tracing.LevelError) // will set the correct level later
	pterm.Info.Println("Welcome to the CJK metrics CLI")
	//
	// set up REPL
	repl, err := readline.New("cjk > ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	intp := &Intp{repl: repl}
	//
	// load font to use
	if err := intp.loadFont(*fontname); err != nil { // font name provided by flag
		tracer().Errorf(err.Error())
		os.Exit(4)
	}
	//
	// start receiving commands
	pterm.Info.Println("Quit with <ctrl>D")
	switch *tlevel {
	case "Debug":
		tracer().SetTraceLevel(tracing.LevelDebug)
	case "Info":
		tracer().SetTraceLevel(tracing.LevelInfo)
	case "Error":
		tracer().SetTraceLevel(tracing.LevelError)
	default:
		tracer().Errorf("Invalid trace level: %s", *tlevel)
		os.Exit(5)
	}
	tracer().Infof("Trace level is %s", *tlevel)
	intp.REPL() // go into interactive mode
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Intp is our interpreter object
type Intp struct {
	font   *ot.Font
	reader *otmetrics.GPOSReader
	repl   *readline.Instance
}

// REPL starts interactive mode.
func (intp *Intp) REPL() {
	for {
		line, err := intp.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		cmd, arg := line, ""
		if i := strings.IndexByte(line, ' '); i > 0 {
			cmd, arg = line[:i], strings.TrimSpace(line[i+1:])
		}
		op, ok := commandFn[strings.ToLower(cmd)]
		if !ok {
			op = helpOp
		}
		err, quit := op(intp, arg)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		if quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
}

var commandFn = map[string]func(*Intp, string) (error, bool){
	"quit":        quitOp,
	"help":        helpOp,
	"tags":        tagsOp,
	"insets":      insetsOp,
	"vmtx":        vmtxOp,
	"adjustments": adjustmentsOp,
	"lookups":     lookupsOp,
}

func quitOp(intp *Intp, arg string) (error, bool) {
	return nil, true
}

func helpOp(intp *Intp, arg string) (error, bool) {
	pterm.Println("commands:")
	pterm.Println("  tags                list the GPOS feature tags")
	pterm.Println("  insets [glyph]      edge insets, all glyphs or one")
	pterm.Println("  vmtx [glyph]        vertical metrics, all glyphs or one")
	pterm.Println("  adjustments <tag>   raw adjustments for a feature tag")
	pterm.Println("  lookups             list the GPOS lookups")
	pterm.Println("  quit                leave the CLI")
	return nil, false
}

func tagsOp(intp *Intp, arg string) (error, bool) {
	tags := intp.reader.Tags()
	if len(tags) == 0 {
		pterm.Println("font has no GPOS features")
		return nil, false
	}
	for _, tag := range tags {
		marker := " "
		if tag == otmetrics.TagPalt || tag == otmetrics.TagVpal {
			marker = "*"
		}
		pterm.Printf("%s %s\n", marker, tag)
	}
	pterm.Printf("has alternate metrics: %v\n", intp.reader.HasMetrics())
	return nil, false
}

func insetsOp(intp *Intp, arg string) (error, bool) {
	insets := intp.reader.EdgeInsets()
	if arg != "" {
		ins, ok := insets[arg]
		if !ok {
			return fmt.Errorf("no edge insets for glyph '%s'", arg), false
		}
		printInsets(arg, ins)
		return nil, false
	}
	for _, name := range sortedKeys(insets) {
		printInsets(name, insets[name])
	}
	pterm.Printf("%d glyphs with edge insets\n", len(insets))
	return nil, false
}

func printInsets(name string, ins otmetrics.EdgeInsets) {
	pterm.Printf("%-16s left=%-5d right=%-5d top=%-5d bottom=%-5d\n",
		name, ins.Left, ins.Right, ins.Top, ins.Bottom)
}

func vmtxOp(intp *Intp, arg string) (error, bool) {
	vmetrics := intp.reader.VerticalMetrics()
	if len(vmetrics) == 0 {
		pterm.Println("font has no vmtx table")
		return nil, false
	}
	if arg != "" {
		vm, ok := vmetrics[arg]
		if !ok {
			return fmt.Errorf("no vertical metrics for glyph '%s'", arg), false
		}
		pterm.Printf("%-16s height=%-5d tsb=%-5d\n", arg, vm.Height, vm.TopSideBearing)
		return nil, false
	}
	for _, name := range sortedKeys(vmetrics) {
		vm := vmetrics[name]
		pterm.Printf("%-16s height=%-5d tsb=%-5d\n", name, vm.Height, vm.TopSideBearing)
	}
	pterm.Printf("%d glyphs with vertical metrics\n", len(vmetrics))
	return nil, false
}

func adjustmentsOp(intp *Intp, arg string) (error, bool) {
	if arg == "" {
		return errors.New("usage: adjustments <tag>"), false
	}
	adjustments := intp.reader.AdjustmentsForTag(ot.T(arg))
	for _, adj := range adjustments {
		pterm.Printf("glyph %-5d %-10s placement=%-5d advance=%-5d\n",
			adj.Glyph, adj.Direction, adj.Placement, adj.Advance)
	}
	pterm.Printf("%d adjustments for tag '%s'\n", len(adjustments), arg)
	return nil, false
}

func lookupsOp(intp *Intp, arg string) (error, bool) {
	gpos := intp.font.Layout.GPos
	if gpos == nil {
		pterm.Println("font has no GPOS table")
		return nil, false
	}
	for i := 0; i < gpos.LookupCount(); i++ {
		lookup := gpos.Lookup(i)
		pterm.Printf("lookup %-3d type=%-12s subtables=%d decoded=%d\n",
			i, lookup.Type.GPosString(), lookup.SubtableCount(), len(lookup.SinglePos))
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// --- Font Loading -----------------------------------------------------

func (intp *Intp) loadFont(fontname string) error {
	if fontname == "" {
		return errors.New("no font given, use -font")
	}
	f, err := cjkmetrics.LoadOpenTypeFont(fontname)
	if err != nil {
		tracer().Errorf("cannot load font %s: %s", fontname, err)
		return err
	}
	tracer().Infof("loaded SFNT font = %s", f.Fontname)
	otf, err := ot.Parse(f.Binary)
	if err != nil {
		tracer().Errorf("cannot decode font %s: %s", fontname, err)
		return err
	}
	otf.F = f
	pterm.Printf("font tables: %v\n", otf.TableTags())
	intp.font = otf
	intp.reader = otmetrics.NewGPOSReader(otf)
	return nil
}
