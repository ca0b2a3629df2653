package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"carinspect/internal/deps"
	"carinspect/internal/preflight"
)

type dependencyView struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
	Version   string `json:"version,omitempty"`
}

type statusSnapshot struct {
	ConfigPath   string             `json:"config_path"`
	Dependencies []dependencyView   `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkLLM, testNotify bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show tool availability and directory health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot := statusSnapshot{ConfigPath: ctx.configPath}
			for _, st := range preflight.CheckSystemDeps(cfg) {
				view := dependencyView{
					Name:      st.Name,
					Command:   st.Command,
					Optional:  st.Optional,
					Available: st.Available,
					Detail:    st.Detail,
				}
				if st.Available {
					view.Version = deps.Version(cmd.Context(), st.Command)
				}
				snapshot.Dependencies = append(snapshot.Dependencies, view)
			}
			snapshot.Checks = preflight.RunAll(cmd.Context(), cfg)
			snapshot.Checks = append(snapshot.Checks, preflight.CheckNotifications(cmd.Context(), cfg, testNotify))
			if checkLLM {
				snapshot.Checks = append(snapshot.Checks, preflight.CheckLLM(cmd.Context(), cfg.GetLLM()))
			}

			return emit(cmd, ctx, snapshot, func(w io.Writer, colorize bool) error {
				lines := renderSectionHeader("Tools", colorize)
				lines = append(lines, dependencyLines(snapshot.Dependencies, colorize)...)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				lines = append(lines, checkLines(snapshot.Checks, colorize)...)
				return writeLines(w, lines...)
			})
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Send a test prompt to the narrative provider")
	cmd.Flags().BoolVar(&testNotify, "test-notify", false, "Publish a test notification to the ntfy topic")
	return cmd
}

func dependencyLines(views []dependencyView, colorize bool) []string {
	lines := make([]string, 0, len(views)+1)
	var missing []string
	for _, dep := range views {
		if dep.Available {
			message := fmt.Sprintf("Ready (command: %s)", dep.Command)
			if dep.Version != "" {
				message = fmt.Sprintf("Ready (%s)", dep.Version)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing tools", statusError,
			strings.Join(missing, ", ")+" (video input and engine audio need them)", colorize))
	}
	return lines
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
