package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/Tyrowin/pixelplace/internal/board"
	"github.com/Tyrowin/pixelplace/internal/config"
	"github.com/Tyrowin/pixelplace/internal/storage"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print color usage and recent chat from a saved snapshot",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().Int("top", 10, "number of colors to list")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	dsn := storageFlag(cmd, cfg.Storage)
	top, _ := cmd.Flags().GetInt("top")

	ctx := context.Background()
	store, err := storage.Open(ctx, dsn, logs.GetLoggerFromString(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("opening storage %q: %w", dsn, err)
	}
	defer store.Close()

	snap, err := store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "no snapshot in %s\n", dsn)
		return nil
	}
	if err != nil {
		return err
	}

	b, err := board.FromRows(snap.Width, snap.Height, snap.Board)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrCorruptSnapshot, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "board %dx%d, %d chat messages\n\n", b.Width(), b.Height(), len(snap.Chat))
	renderHistogram(out, b.Histogram(), b.Width()*b.Height(), top)
	fmt.Fprintln(out)
	renderChat(out, snap)
	return nil
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderHistogram(out io.Writer, counts map[string]int, total, top int) {
	colors := lo.Keys(counts)
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return colors[i] < colors[j]
	})
	if top > 0 && len(colors) > top {
		colors = colors[:top]
	}

	table := newTable(out, []string{"Color", "Cells", "Share"})
	for _, c := range colors {
		share := float64(counts[c]) * 100 / float64(total)
		table.Append([]string{c, strconv.Itoa(counts[c]), fmt.Sprintf("%.1f%%", share)})
	}
	table.Render()
}

func renderChat(out io.Writer, snap storage.Snapshot) {
	table := newTable(out, []string{"#", "Player", "Text"})
	for i, msg := range snap.Chat {
		table.Append([]string{strconv.Itoa(i + 1), msg.Player, msg.Text})
	}
	table.Render()
}
