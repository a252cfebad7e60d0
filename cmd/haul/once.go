package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/queue"
	"github.com/mmcdole/haul/internal/tui/styles"
)

// queueFetcher is the slice of queue.Sync used by -once
type queueFetcher interface {
	Refresh(ctx context.Context) error
	View() queue.ViewState
}

// printQueue fetches the queue once and writes it as a table
func printQueue(ctx context.Context, q queueFetcher, w io.Writer) error {
	if err := q.Refresh(ctx); err != nil {
		return err
	}

	state := q.View()
	if state.Plan.Empty() {
		fmt.Fprintln(w, queue.EmptyMessage)
		return nil
	}

	fmt.Fprintln(w, renderQueueTable(state.Plan))
	return nil
}

func renderQueueTable(plan queue.RenderPlan) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DimStyle).
		Headers("STATUS", "NAME", "BY", "SERVICE", "ACTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle
			}
			if col == 0 {
				return styles.TableCellStyle.Foreground(styles.StatusColor(plan.Rows[row].Status))
			}
			return styles.TableCellStyle
		})

	for _, r := range plan.Rows {
		glyph, _ := styles.StatusGlyph(r.Status)
		actions := make([]string, len(r.Actions))
		for i, a := range r.Actions {
			actions[i] = string(a)
		}
		t.Row(
			glyph+" "+r.Status.String(),
			styles.Truncate(r.Name, 48),
			styles.Truncate(r.By, 28),
			domain.ServiceLabel(r.ServiceID),
			strings.Join(actions, ","),
		)
	}
	return t.Render()
}
