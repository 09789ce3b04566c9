/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	cobra "github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sergelogvinov/cpu-throttle/pkg/frequency"
	"github.com/sergelogvinov/cpu-throttle/pkg/governor"
	"github.com/sergelogvinov/cpu-throttle/pkg/launcher"
	"github.com/sergelogvinov/cpu-throttle/pkg/policy"
	utilsys "github.com/sergelogvinov/cpu-throttle/pkg/utils/sys"

	"sigs.k8s.io/karpenter/pkg/utils/env"
)

const (
	verbosityEnvVarName = "CPU_THROTTLE_VERBOSITY"
	verbosityFlagName   = "verbosity"

	strictEnvVarName = "CPU_THROTTLE_STRICT"
	strictFlagName   = "strict"
)

var (
	// ErrUsage is returned when the command line arguments or flags are invalid.
	ErrUsage = errors.New("invalid usage")
	// ErrNotPrivileged is returned when the binary does not run as root.
	ErrNotPrivileged = errors.New("root privileges missing (check that the binary is owned by root and has setuid bit set)")
	// ErrNotApplied is returned when the maximum frequency was not accepted by every CPU.
	ErrNotApplied = errors.New("maximum frequency not applied to every CPU")
)

type throttleCmd struct {
	verbosity int
	strict    bool

	governor     governor.Governor
	privileged   func() bool
	launcherOpts []launcher.Option
	logger       logr.Logger
	stderr       io.Writer

	target   frequency.KHz
	exitCode int
}

func newThrottleCmd() *throttleCmd {
	return &throttleCmd{
		governor:   governor.NewSysfs(),
		privileged: utilsys.IsPrivileged,
	}
}

func (c *throttleCmd) build() *cobra.Command {
	cmd := cobra.Command{
		Use:     command + " [flags] <frequency> <command> [args...]",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Short:   "Run a command with the maximum CPU frequency capped",
		Long: `Run a command with the maximum CPU frequency of every CPU capped,
the original frequency scaling policies are restored when the command exits.

Frequency is a number with an optional k(Hz), m(Hz) or g(Hz) suffix.
Without a suffix, the value is interpreted in kHz by default.`,
		Example: command + " 1.2GHz make -j8",
		Args:    usageArgs(cobra.MinimumNArgs(2)),
		PreRunE: c.parseArgs,
		RunE:    c.runThrottle,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	c.addFlags(cmd.Flags())

	return &cmd
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}

		return nil
	}
}

func (c *throttleCmd) addFlags(fs *pflag.FlagSet) {
	// Everything after the frequency belongs to the command.
	fs.SetInterspersed(false)

	fs.IntVarP(&c.verbosity, verbosityFlagName, "v", env.WithDefaultInt(verbosityEnvVarName, 0), "Verbosity level (0=info, 1=debug, -1=errors only)")
	fs.BoolVar(&c.strict, strictFlagName, env.WithDefaultBool(strictEnvVarName, false), "Do not run the command unless every CPU accepted the maximum frequency")
}

func (c *throttleCmd) parseArgs(cmd *cobra.Command, args []string) (err error) {
	if c.logger.GetSink() == nil {
		c.logger = setupLogger(cmd.ErrOrStderr(), c.verbosity)
	}

	c.target, err = frequency.Parse(args[0])
	if err != nil {
		return fmt.Errorf("could not parse frequency argument (%s): %w", args[0], err)
	}

	return nil
}

func (c *throttleCmd) runThrottle(cmd *cobra.Command, args []string) error {
	if !c.privileged() {
		return ErrNotPrivileged
	}

	controller, err := policy.NewController(c.governor, c.logger)
	if err != nil {
		return err
	}

	if err := controller.Capture(); err != nil {
		return err
	}

	ctx, stop := withTerminationSignals(cmd.Context(), c.logger)
	defer stop()

	defer func() {
		if err := controller.Restore(); err != nil {
			c.logger.Error(err, "Some CPU policies were not reset")
		}
	}()

	applyErr := controller.Apply(c.target)
	if applyErr != nil && c.strict {
		return fmt.Errorf("%w, not running %s", ErrNotApplied, args[1])
	}

	c.exitCode = launcher.New(c.logger, c.launcherOpts...).Run(ctx, args[1], args[2:])

	if applyErr != nil {
		return ErrNotApplied
	}

	return nil
}
