// Command probe inspects an input dataset and emits its inferred schema and
// generated filter fields as JSON.
//
// This command is intended for quickly checking what the service would make
// of a file before uploading it. It reads a bounded prefix of the input
// (default 20KB), sniffs the format (CSV, JSON, or an HTML table), infers
// column types, and prints the result.
//
// Output modes
//
//   - Default mode: prints a JSON object with schema and fields to stdout.
//   - Report mode (-report): prints a human-readable per-column summary and
//     suppresses JSON output. This makes the command convenient for
//     interactive analysis and scripting.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"tablecast/internal/datasource"
	"tablecast/internal/filterfield"
	"tablecast/internal/infer"
	"tablecast/internal/parser"
	"tablecast/internal/schema"
	"tablecast/pkg/records"
)

// probeOutput is the JSON emitted in default mode.
type probeOutput struct {
	Format string              `json:"format"`
	Rows   int                 `json:"rows"`
	Schema schema.TableSchema  `json:"schema"`
	Fields []filterfield.Field `json:"fields"`
}

func main() {
	var (
		// flagURL is the URL or local filesystem path to the dataset.
		// Supported: http:// and https:// URLs, file:// URLs, bare paths.
		flagURL = flag.String("url", "", "URL or path of the source file (CSV, JSON, or HTML table)")

		// flagBytes controls how many bytes are sampled from the start of the
		// input. Larger values can improve inference quality at the cost of
		// slightly more time and memory.
		flagBytes = flag.Int("bytes", datasource.DefaultMaxBytes, "Number of bytes to sample from the start of the file")

		// flagSample caps how many rows inference examines. 0 means all
		// parsed rows.
		flagSample = flag.Int("sample", 0, "Max rows to sample for inference (0 = all)")

		// flagPretty controls JSON indentation. Ignored in report mode.
		flagPretty = flag.Bool("pretty", true, "Pretty-print JSON output")

		// flagAllowInsecure controls TLS certificate verification for HTTP
		// sources. Useful for internal endpoints with self-signed certs;
		// prefer false in production.
		flagAllowInsecure = flag.Bool("allow-insecure", false, "Allow insecure TLS")

		// flagReport enables report mode: a human-readable column summary
		// instead of JSON.
		flagReport = flag.Bool("report", false, "Print a per-column report (suppresses JSON output)")

		// Tag heuristic thresholds. The defaults match the service.
		flagMaxUnique = flag.Float64("tag-max-unique", infer.DefaultTagConfig().MaxUniqueRatio, "Tag heuristic: max distinct/total ratio")
		flagMinDup    = flag.Float64("tag-min-dup", infer.DefaultTagConfig().MinDuplicateRatio, "Tag heuristic: min duplicate/total ratio")
	)
	flag.Parse()

	if strings.TrimSpace(*flagURL) == "" {
		fmt.Fprintln(os.Stderr, "missing -url")
		flag.Usage()
		os.Exit(2)
	}

	// Probing should be fast and predictable; if the source is slow or
	// unreachable, fail quickly rather than hang.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	data, err := datasource.Fetch(ctx, *flagURL, datasource.Options{
		MaxBytes:         *flagBytes,
		AllowInsecureTLS: *flagAllowInsecure,
	})
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	format, cols, rows, err := parser.ParseAny(data)
	if err != nil {
		log.Fatalf("probe: parse: %v", err)
	}

	ts, err := infer.Infer(rows, infer.Options{
		Keys:       cols,
		SampleSize: *flagSample,
		Tag: infer.TagConfig{
			MaxUniqueRatio:    *flagMaxUnique,
			MinDuplicateRatio: *flagMinDup,
		},
	})
	if err != nil {
		log.Fatalf("probe: infer: %v", err)
	}

	if *flagReport {
		fmt.Fprint(os.Stdout, columnReport(ts, rows))
		return
	}

	fields, err := filterfield.Generate(ts, rows, filterfield.GenOptions{})
	if err != nil {
		log.Fatalf("probe: fields: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *flagPretty {
		enc.SetIndent("", "  ")
	}
	out := probeOutput{Format: string(format), Rows: len(rows), Schema: ts, Fields: fields}
	if err := enc.Encode(out); err != nil {
		log.Fatalf("probe: encode: %v", err)
	}
}

// columnReport renders one line per column: position, name, inferred type,
// distinct/missing counts over the sampled rows.
//
// The output is stable (ordered by position) so it can be diffed in scripts.
func columnReport(ts schema.TableSchema, rows []records.Record) string {
	var b strings.Builder
	if len(rows) == 0 {
		b.WriteString("no rows sampled\n")
		return b.String()
	}

	cols := ts.Columns()
	sort.Slice(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })

	for _, c := range cols {
		distinct := map[string]struct{}{}
		missing := 0
		for _, row := range rows {
			v := row[c.Name]
			if records.Missing(v) {
				missing++
				continue
			}
			distinct[records.Canonical(v)] = struct{}{}
		}
		fmt.Fprintf(&b, "%2d  %-24s %-8s distinct=%d missing=%d rows=%d\n",
			c.Position, c.Name, c.Type, len(distinct), missing, len(rows))
	}
	return b.String()
}
