// Copyright 2025-2026 The GoNAS Authors. SPDX-License-Identifier: Apache-2.0

// gonas is the command-line entry point to evaluate NAS candidates: it
// trains a model (from a factory spec or a saved architecture description)
// and reports the resulting metrics.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"

	"github.com/gonas/gonas/config"
	"github.com/gonas/gonas/desc"
	"github.com/gonas/gonas/eval"
	"github.com/gonas/gonas/trainer"

	// Model-zoo modules available to factory specs.
	_ "github.com/gonas/gonas/zoo/densenet"
	_ "github.com/gonas/gonas/zoo/resnet"
	_ "github.com/gonas/gonas/zoo/vision"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "gonas",
	Short: "gonas evaluates neural-architecture-search candidates",
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Train and evaluate the configured model, saving metrics and weights",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		backend := backends.MustNew()
		klog.V(1).Infof("backend %q: %s", backend.Name(), backend.Description())

		metrics, err := eval.New(backend).Evaluate(cfg, desc.ConfigBuilder{})
		if err != nil {
			return err
		}
		printMetrics(metrics)
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics <metrics-file>",
	Short: "Render a saved metrics file as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics, err := trainer.LoadMetrics(args[0])
		if err != nil {
			return err
		}
		printMetrics(metrics)
		return nil
	},
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == 1:
				return headerRowStyle
			case row%2 == 0:
				return oddRowStyle
			default:
				return evenRowStyle
			}
		})
}

func printMetrics(metrics *trainer.Metrics) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Run %s: %s on %s", metrics.RunID, metrics.Model, metrics.Dataset)))
	table := newTable()
	table.Row("Epoch", "Step", "Train Loss", "Train Acc", "Test Loss", "Test Acc", "Duration")
	for _, em := range metrics.Epochs {
		table.Row(
			fmt.Sprintf("%d", em.Epoch),
			humanize.Comma(em.GlobalStep),
			fmt.Sprintf("%.4f", em.TrainLoss),
			fmt.Sprintf("%.2f%%", 100*em.TrainAccuracy),
			fmt.Sprintf("%.4f", em.TestLoss),
			fmt.Sprintf("%.2f%%", 100*em.TestAccuracy),
			fmt.Sprintf("%.1fs", em.DurationSecs),
		)
	}
	fmt.Println(table.Render())
	if metrics.BestEpoch >= 0 {
		fmt.Printf("Best test accuracy: %.2f%% (epoch %d)\n", 100*metrics.BestTestAccuracy, metrics.BestEpoch)
	}
}

func main() {
	evalCmd.Flags().StringVarP(&configFile, "config", "c", "gonas.yaml", "Path to the evaluation configuration file")
	rootCmd.AddCommand(evalCmd, metricsCmd)
	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
}
