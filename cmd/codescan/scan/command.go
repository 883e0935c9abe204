// Package scan implements the scan command of the codescan CLI.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/codescan-io/codescan/cmd/codescan/internal/helper"
	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/codescan-io/codescan/internal/config"
	"github.com/codescan-io/codescan/internal/language"
	"github.com/codescan-io/codescan/internal/payload"
	"github.com/codescan-io/codescan/internal/project"
	"github.com/codescan-io/codescan/internal/scanapi"
	"github.com/codescan-io/codescan/pkg/codescan"
	"github.com/codescan-io/codescan/pkg/models"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func Command(stdout, _ io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "scan",
		Usage:       "scans projects with the remote code scan service",
		Description: "packages each project, uploads it, waits for the scan to finish and reports its findings",
		Flags:       helper.BuildScanFlags(),
		ArgsUsage:   "[file or directory...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return action(ctx, cmd, stdout)
		},
	}
}

func action(ctx context.Context, cmd *cli.Command, stdout io.Writer) error {
	if err := config.LoadDotEnv(cmd.StringSlice("env-file")...); err != nil {
		return err
	}

	configManager := config.NewManager()
	if configPath := cmd.String("config"); configPath != "" {
		if err := configManager.UseOverride(configPath); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	targets := make([]target, 0, len(args))
	for _, arg := range args {
		t, err := resolveTarget(arg, cmd.String("file"))
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}

	results := make([]*models.ScanResult, len(targets))
	errs := make([]error, len(targets))

	scanOne := func(i int) {
		results[i], errs[i] = scanTarget(ctx, cmd, configManager, targets[i])
	}

	if parallel := cmd.Int("parallel"); parallel > 1 && len(targets) > 1 {
		// each scan records its own error, so one failing does not cancel the rest
		var group errgroup.Group
		group.SetLimit(parallel)

		for i := range targets {
			group.Go(func() error {
				scanOne(i)

				return nil
			})
		}
		_ = group.Wait()
	} else {
		for i := range targets {
			scanOne(i)
		}
	}

	completed := make([]models.ScanResult, 0, len(results))
	issues := 0
	for _, result := range results {
		if result != nil {
			completed = append(completed, *result)
			issues += result.IssueCount
		}
	}

	if len(completed) > 0 {
		if err := helper.PrintResult(stdout, cmd.String("output"), cmd.String("format"), completed); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	if issues > 0 {
		return codescan.ErrIssuesFound
	}

	return nil
}

func scanTarget(ctx context.Context, cmd *cli.Command, configManager *config.Manager, t target) (*models.ScanResult, error) {
	conf := configManager.Get(t.root)

	scope := conf.Scope
	if s := cmd.String("scope"); s != "" {
		scope = s
	}

	index, err := project.Open(t.root, project.Options{
		ToolIgnoreFile:    conf.ToolIgnoreFile,
		ExtraIgnores:      cmd.StringSlice("exclude"),
		LibraryDirs:       conf.LibraryDirs,
		BuildArtifactDirs: conf.BuildArtifactDirs,
	})
	if err != nil {
		return nil, err
	}

	log := cmdlogger.Prefixed(index.Root())

	if conf.Token == "" {
		log.Warnf("No token configured, set %s or add one to the config file", config.EnvToken)
	}

	session := codescan.NewSession(codescan.Options{
		Builder: &payload.Builder{
			Index:    index,
			Detector: language.Default,
			Limits: payload.Limits{
				MaxPayloadBytes:       conf.MaxPayloadBytes,
				RequireBuildArtifacts: cmd.Bool("test-generation"),
			},
		},
		Service:             scanapi.NewClient(conf.Endpoint, conf.Token),
		ProjectRoot:         index.Root(),
		SelectedFile:        t.selected,
		BuildLog:            cmd.String("build-log"),
		Scope:               scope,
		PayloadBuildTimeout: conf.PayloadBuildTimeout.Std(),
		ScanTimeout:         conf.ScanTimeout.Std(),
		PollInterval:        conf.PollInterval.Std(),
		OnStateChange: func(s codescan.State) {
			log.Debugf("%s", s)
		},
	})

	result, err := session.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", index.Root(), err)
	}

	log.Infof("Scan finished in %s with %d issues", result.Elapsed.Round(time.Millisecond), result.IssueCount)

	return result, nil
}
