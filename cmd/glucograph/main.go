// Package main provides the CLI entry point for glucograph.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/glucograph/glucograph/internal/chart"
	"github.com/glucograph/glucograph/internal/config"
	"github.com/glucograph/glucograph/internal/libreview"
	"github.com/glucograph/glucograph/internal/render"
	"github.com/glucograph/glucograph/internal/summary"
)

var (
	configPath string
	inputPath  string
	dateStr    string
	outputPath string
	allDays    bool
)

const dateLayout = "2006-01-02"

func main() {
	rootCmd := &cobra.Command{
		Use:   "glucograph",
		Short: "Render annotated daily glucose charts from LibreView CSV exports",
		Long: `glucograph reads the CSV export of a FreeStyle Libre sensor from the
LibreView portal and renders an annotated daily chart: the glucose
curve, manual scan points, the highest and lowest value of each time
interval, and the notes recorded on the device.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "*.csv", "Input file path or glob pattern; newest match wins")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the daily chart as a PNG",
		RunE:  runRender,
	}
	renderCmd.Flags().StringVarP(&dateStr, "date", "d", "", "Day to render, YYYY-MM-DD (default: latest day in the file)")
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output PNG path (default: glucose-DATE.png)")
	renderCmd.Flags().BoolVar(&allDays, "all", false, "Render every day in the file, ignoring --date and --output")

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the day statistics without rendering",
		RunE:  runSummary,
	}
	summaryCmd.Flags().StringVarP(&dateStr, "date", "d", "", "Day to summarize, YYYY-MM-DD (default: latest day in the file)")

	datesCmd := &cobra.Command{
		Use:   "dates",
		Short: "List the days present in the export",
		RunE:  runDates,
	}

	rootCmd.AddCommand(renderCmd, summaryCmd, datesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadAll reads the configuration and the input export.
func loadAll() (*config.Config, *libreview.File, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	file, err := libreview.Load(inputPath)
	if err != nil {
		return nil, nil, err
	}
	if file.Stats.Malformed > 0 {
		log.Printf("Skipped %d malformed rows out of %d", file.Stats.Malformed, file.Stats.Total)
	}

	return cfg, file, nil
}

// resolveDay picks the day to work on: the --date flag when given,
// otherwise the most recent day in the file.
func resolveDay(file *libreview.File) (time.Time, error) {
	if dateStr != "" {
		day, err := time.ParseInLocation(dateLayout, dateStr, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", dateStr)
		}
		return day, nil
	}

	day, ok := file.Latest()
	if !ok {
		return time.Time{}, fmt.Errorf("no readings found in input")
	}
	return day, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, file, err := loadAll()
	if err != nil {
		return err
	}

	pipeline, err := render.New(cfg)
	if err != nil {
		return err
	}

	var days []time.Time
	if allDays {
		days = file.Dates()
		if len(days) == 0 {
			return fmt.Errorf("no readings found in input")
		}
	} else {
		day, err := resolveDay(file)
		if err != nil {
			return err
		}
		days = []time.Time{day}
	}

	for _, day := range days {
		result, err := pipeline.RenderDay(file, day)
		if errors.Is(err, chart.ErrNoData) {
			log.Printf("No glucose values for %s, skipping", day.Format(dateLayout))
			continue
		}
		if err != nil {
			return fmt.Errorf("rendering %s: %w", day.Format(dateLayout), err)
		}

		out := outputPath
		if out == "" || allDays {
			out = fmt.Sprintf("glucose-%s.png", day.Format(dateLayout))
		}
		if err := os.WriteFile(out, result.PNG, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		log.Printf("Wrote %s (%d bytes)", out, len(result.PNG))
	}

	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, file, err := loadAll()
	if err != nil {
		return err
	}

	pipeline, err := render.New(cfg)
	if err != nil {
		return err
	}

	day, err := resolveDay(file)
	if err != nil {
		return err
	}

	s := pipeline.Summarize(file, day)
	fmt.Print(summary.Format(s, pipeline.Target()))
	return nil
}

func runDates(cmd *cobra.Command, args []string) error {
	_, file, err := loadAll()
	if err != nil {
		return err
	}

	days := file.Dates()
	if len(days) == 0 {
		return fmt.Errorf("no readings found in input")
	}

	counts := make(map[time.Time]int)
	for _, r := range file.Readings {
		day := time.Date(r.Time.Year(), r.Time.Month(), r.Time.Day(), 0, 0, 0, 0, r.Time.Location())
		counts[day]++
	}

	for _, day := range days {
		fmt.Printf("%s  %d readings\n", day.Format(dateLayout), counts[day])
	}
	return nil
}
