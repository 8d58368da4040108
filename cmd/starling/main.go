// Starling CLI - loads and runs Starling scripts
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/starling/manifest"
	"github.com/chazu/starling/vm"
	"github.com/chazu/starling/vm/dist"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	evalExpr := flag.String("e", "", "Evaluate a single expression and print the result")
	noManifest := flag.Bool("no-manifest", false, "Skip starling.toml discovery")
	publish := flag.Bool("publish", false, "Write class chunks to the local chunk cache after loading")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: starling [options] [scripts...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs Starling scripts. Without arguments, loads the project named by starling.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  starling app.sta           # Run one script\n")
		fmt.Fprintf(os.Stderr, "  starling -i                # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  starling -e 'Point.new(1, 2)'\n")
		fmt.Fprintf(os.Stderr, "  starling --publish         # Load project and cache class chunks\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	}

	engine := vm.NewEngine()

	var mf *manifest.Manifest
	if !*noManifest {
		found, err := manifest.FindAndLoad(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		mf = found
	}

	scripts := flag.Args()
	if len(scripts) == 0 && mf != nil {
		found, err := mf.Scripts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		scripts = found
	}

	for i, path := range scripts {
		if err := runScript(engine, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("Loaded %s\n", path)
		}
		if mf != nil && mf.GC.Interval > 0 && (i+1)%mf.GC.Interval == 0 {
			engine.CollectGarbage()
		}
	}
	flushMessages(engine)

	if mf != nil && mf.Source.Defcompile {
		if err := engine.CompileAll(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *publish && mf != nil {
		if err := publishChunks(engine, mf, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *evalExpr != "" {
		v, err := engine.EvalExpr("command-line", *evalExpr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(v.String())
		return
	}

	if *interactive {
		repl(engine)
	}
}

func runScript(engine *vm.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if serr := engine.ExecScript(path, string(data)); serr != nil {
		return serr
	}
	return nil
}

// publishChunks digests every registered class into the project's chunk
// cache, parents before children so a receiver can replay in order.
func publishChunks(engine *vm.Engine, mf *manifest.Manifest, verbose bool) error {
	store, err := dist.OpenChunkStore(mf.ChunkCachePath())
	if err != nil {
		return err
	}
	defer store.Close()

	count := 0
	for _, name := range engine.Classes().Names() {
		cl := engine.Classes().Lookup(name)
		var deps [][32]byte
		if cl.Extends != nil {
			deps = append(deps, dist.DigestClass(cl.Extends).Hash)
		}
		for _, itf := range cl.Impls {
			deps = append(deps, dist.DigestClass(itf).Hash)
		}
		if err := store.Put(dist.ClassToChunk(cl, deps)); err != nil {
			return err
		}
		count++
	}
	if verbose {
		fmt.Printf("Published %d class chunks to %s\n", count, mf.ChunkCachePath())
	}
	return nil
}

func repl(engine *vm.Engine) {
	fmt.Println("Starling REPL. Type expressions, or statements like 'var x = 1'. Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	var block []string
	for {
		if len(block) == 0 {
			fmt.Print("> ")
		} else {
			fmt.Print("... ")
		}
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		block = append(block, line)
		if openBlock(block) {
			continue
		}
		src := strings.Join(block, "\n")
		block = block[:0]

		if v, err := engine.EvalExpr("repl", src); err == nil {
			fmt.Println(v.String())
			continue
		}
		// not a lone expression; run as a script. Errors land on the
		// message list alongside any echo output that preceded them.
		engine.ExecScript("repl", src)
		flushMessages(engine)
	}
}

// openBlock reports whether the accumulated lines still await an end
// keyword.
func openBlock(lines []string) bool {
	depth := 0
	for _, line := range lines {
		word := strings.Fields(strings.TrimSpace(line))
		if len(word) == 0 {
			continue
		}
		switch word[0] {
		case "class", "interface", "def", "if", "while", "try", "abstract":
			depth++
		case "endclass", "endinterface", "enddef", "endif", "endwhile", "endtry":
			depth--
		}
	}
	return depth > 0
}

func flushMessages(engine *vm.Engine) {
	for _, msg := range engine.Messages {
		fmt.Println(msg)
	}
	engine.Messages = engine.Messages[:0]
}
