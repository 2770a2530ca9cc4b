package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/homebus/internal/app"
	"github.com/dshills/homebus/internal/config"
)

// ErrInvalidConfig is returned by validate when entries were skipped.
var ErrInvalidConfig = errors.New("configuration has problems")

// ValidationResult is the outcome of validating a configuration.
type ValidationResult struct {
	Valid         bool           `json:"valid"`
	Name          string         `json:"name"`
	Platform      string         `json:"platform"`
	Components    []string       `json:"components"`
	Disabled      []string       `json:"disabled,omitempty"`
	Problems      []string       `json:"problems,omitempty"`
	Subscriptions []Subscription `json:"subscriptions,omitempty"`
}

// Subscription is one row of the routing table.
type Subscription struct {
	Topic       string   `json:"topic"`
	Published   bool     `json:"published"`
	Subscribers []string `json:"subscribers"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration without touching hardware",
		Long: `Validate loads the configuration and builds every component against the
simulated board. It reports the components that would run, the entries
that would be skipped and the resulting routing table. Nothing is started
and no state is written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, nil)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, rootOpts *RootOptions, environ map[string]string) error {
	s, err := resolve(rootOpts, environ)
	if err != nil {
		return err
	}
	doc, err := s.load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
		return err
	}

	result := validate(doc)
	if rootOpts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		writeValidation(cmd.OutOrStdout(), result)
	}
	if !result.Valid {
		return ErrInvalidConfig
	}
	return nil
}

// validate builds doc on the simulated board with persistence disabled.
func validate(doc *config.Document) ValidationResult {
	checked := *doc
	platform := checked.Platform
	checked.Platform = app.PlatformSim
	checked.Store = config.Store{}

	rt := app.New(app.Options{})
	result := ValidationResult{Name: doc.Name, Platform: platform}
	if err := rt.Configure(&checked); err != nil {
		result.Problems = append(result.Problems, err.Error())
		return result
	}
	defer func() { _ = rt.Shutdown() }()

	result.Components = rt.Components()
	result.Disabled = doc.Disabled
	for _, err := range rt.Skipped() {
		result.Problems = append(result.Problems, err.Error())
	}

	router := rt.Router()
	for _, t := range router.Topics() {
		_, published := router.Publisher(t)
		row := Subscription{Topic: t.String(), Published: published}
		for _, sub := range router.Subscribers(t) {
			row.Subscribers = append(row.Subscribers, fmt.Sprintf("%s(%d)", sub.Subscriber().Topic(), sub.Priority()))
		}
		result.Subscriptions = append(result.Subscriptions, row)
	}
	if platform == "" {
		result.Platform = app.PlatformSim
	}
	result.Valid = len(result.Problems) == 0
	return result
}

func writeValidation(w io.Writer, r ValidationResult) {
	fmt.Fprintf(w, "%s on %s\n", r.Name, r.Platform)
	fmt.Fprintf(w, "components: %s\n", strings.Join(r.Components, ", "))
	if len(r.Disabled) > 0 {
		fmt.Fprintf(w, "disabled:   %s\n", strings.Join(r.Disabled, ", "))
	}
	for _, s := range r.Subscriptions {
		mark := " "
		if !s.Published {
			mark = "?"
		}
		fmt.Fprintf(w, "%s %-12s -> %s\n", mark, s.Topic, strings.Join(s.Subscribers, ", "))
	}
	if r.Valid {
		fmt.Fprintln(w, "✓ configuration valid")
		return
	}
	for _, p := range r.Problems {
		fmt.Fprintf(w, "✗ %s\n", p)
	}
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
