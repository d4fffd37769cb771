// Command calibrate runs the colour heuristic over a directory of images so its
// thresholds can be tuned for a particular camera and room.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"firewatch/internal/config"
	"firewatch/internal/service/fire"

	"github.com/urfave/cli/v2"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true}

// summary aggregates the verdicts of a calibration run.
type summary struct {
	Total     int
	Positives int
	Skipped   int
	// Wrong counts verdicts that disagree with --expect.
	Wrong    int
	MinRatio float64
	MaxRatio float64
}

func main() {
	cliApp := &cli.App{
		Name:            "calibrate",
		Usage:           "evaluate the colour heuristic on a directory of images",
		ArgsUsage:       "<dir>",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "expect", Usage: "expected verdict for every image: fire or clear"},
			&cli.Float64Flag{Name: "min-ratio", Usage: "override the fire pixel ratio threshold"},
			&cli.Float64Flag{Name: "core-brightness", Usage: "override the core brightness threshold"},
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if dir == "" {
				return cli.Exit("image directory required", 1)
			}

			params := fire.OptionsFromConfig(config.Load()).Heuristic
			if c.IsSet("min-ratio") {
				params.MinFireRatio = c.Float64("min-ratio")
			}
			if c.IsSet("core-brightness") {
				params.CoreBrightness = c.Float64("core-brightness")
			}

			expect := strings.ToLower(c.String("expect"))
			if expect != "" && expect != "fire" && expect != "clear" {
				return cli.Exit("--expect must be fire or clear", 1)
			}

			s, err := calibrate(dir, fire.NewHeuristic(params), expect, os.Stdout)
			if err != nil {
				return err
			}
			printSummary(os.Stdout, s, expect)
			return nil
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("Calibration failed: %v", err)
	}
}

// calibrate classifies every image in dir, writing one row per file to w.
func calibrate(dir string, h *fire.Heuristic, expect string, w io.Writer) (summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary{}, fmt.Errorf("failed to read images directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tFIRE PIXELS\tRATIO\tMAX BRIGHTNESS\tFIRE\tCONFIDENCE")

	s := summary{MinRatio: -1}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", name, err)
			s.Skipped++
			continue
		}

		a, err := h.AnalyzeBytes(data)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", name, err)
			s.Skipped++
			continue
		}

		s.Total++
		if a.Result.Fire {
			s.Positives++
		}
		if (expect == "fire" && !a.Result.Fire) || (expect == "clear" && a.Result.Fire) {
			s.Wrong++
		}
		if s.MinRatio < 0 || a.Ratio < s.MinRatio {
			s.MinRatio = a.Ratio
		}
		if a.Ratio > s.MaxRatio {
			s.MaxRatio = a.Ratio
		}

		fmt.Fprintf(tw, "%s\t%dx%d\t%d\t%.4f\t%.1f\t%v\t%.2f\n",
			name, a.Width, a.Height, a.FirePixels, a.Ratio, a.MaxBrightness, a.Result.Fire, a.Result.Confidence)
	}
	if s.MinRatio < 0 {
		s.MinRatio = 0
	}

	return s, tw.Flush()
}

func printSummary(w io.Writer, s summary, expect string) {
	fmt.Fprintf(w, "\n📊 Calibration summary:\n")
	fmt.Fprintf(w, "   Images analysed: %d\n", s.Total)
	fmt.Fprintf(w, "   Fire verdicts: %d\n", s.Positives)
	fmt.Fprintf(w, "   Fire pixel ratio range: %.4f - %.4f\n", s.MinRatio, s.MaxRatio)
	if expect != "" && s.Total > 0 {
		fmt.Fprintf(w, "   Expected %q, wrong: %d (%.1f%%)\n", expect, s.Wrong, float64(s.Wrong)*100/float64(s.Total))
	}
	if s.Skipped > 0 {
		fmt.Fprintf(w, "⚠️  Skipped %d files (unreadable or not images)\n", s.Skipped)
	}
}
