package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/codefionn/planrunner/internal/client"
	"github.com/codefionn/planrunner/internal/server"
	"github.com/codefionn/planrunner/internal/supervisor"
	"github.com/codefionn/planrunner/internal/task"
)

var (
	labelStyle  = lipgloss.NewStyle().Bold(true)
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stateStyles = map[task.State]lipgloss.Style{
		task.StateCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		task.StateFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		task.StateRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		task.StatePending:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		task.StateNotFound:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
	}
)

func renderState(s task.State) string {
	if style, ok := stateStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func printStatus(w io.Writer, st task.Status) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Task:  "), idStyle.Render(st.TaskID))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Status:"), renderState(st.Status))
	if st.Result != nil {
		fmt.Fprintf(w, "%s\n%s\n", labelStyle.Render("Result:"), *st.Result)
	}
	if st.Error != nil {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Error: "), errorStyle.Render(*st.Error))
	}
}

func printTasks(w io.Writer, tasks []task.Summary) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No tasks"))
		return
	}
	idWidth := 0
	for _, t := range tasks {
		idWidth = max(idWidth, len(t.TaskID))
	}
	for _, t := range tasks {
		state := lipgloss.NewStyle().Width(len(task.StateCompleted) + 1).Render(renderState(t.Status))
		fmt.Fprintf(w, "%s  %s %s\n", idStyle.Render(t.TaskID+strings.Repeat(" ", idWidth-len(t.TaskID))), state, t.TaskPreview)
	}
}

func printHealth(w io.Writer, h supervisor.Health) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Status:          "), h.Status)
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Active tasks:    "), h.ActiveTasks)
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Active processes:"), h.ActiveProcesses)
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Pending:         "), h.Pending)
}

func printReset(w io.Writer, r server.ResetResponse) {
	fmt.Fprintf(w, "%s: cleared %d tasks, cancelled %d pending, killed %d workers\n",
		r.Status, r.TasksCleared, r.PendingCancelled, r.Killed)
}

func (c *RunCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cl := client.New(c.Server)
	resp, err := cl.Run(ctx, c.Task)
	if err != nil {
		return err
	}
	if !c.Wait {
		fmt.Printf("%s %s\n", resp.Message, idStyle.Render(resp.TaskID))
		return nil
	}

	fmt.Fprintf(os.Stderr, "%s\n", dimStyle.Render("Waiting for "+resp.TaskID+"..."))
	st, err := cl.Wait(ctx, resp.TaskID, c.Interval)
	if err != nil {
		return err
	}
	printStatus(os.Stdout, st)
	if st.Status == task.StateFailed {
		return fmt.Errorf("task %s failed", st.TaskID)
	}
	return nil
}

func (c *StatusCmd) Run(g *Globals) error {
	st, err := client.New(c.Server).Status(context.Background(), c.TaskID)
	if err != nil {
		return err
	}
	printStatus(os.Stdout, st)
	return nil
}

func (c *TasksCmd) Run(g *Globals) error {
	tasks, err := client.New(c.Server).Tasks(context.Background())
	if err != nil {
		return err
	}
	printTasks(os.Stdout, tasks)
	return nil
}

func (c *HealthCmd) Run(g *Globals) error {
	h, err := client.New(c.Server).Health(context.Background())
	if err != nil {
		return err
	}
	printHealth(os.Stdout, h)
	return nil
}

func (c *ResetCmd) Run(g *Globals) error {
	r, err := client.New(c.Server).Reset(context.Background())
	if err != nil {
		return err
	}
	printReset(os.Stdout, r)
	return nil
}
