package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"

	"scribe/state"
)

// RunPush uploads a bundle directory to the configured repository.
func RunPush(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("backup")

	bundleDir := cmd.Args().Get(0)
	if bundleDir == "" {
		return errors.New("no bundle has been specified")
	}
	bundleDir, err := filepath.Abs(bundleDir)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(bundleDir); err != nil || !fi.IsDir() {
		return fmt.Errorf("bundle directory was not found (%s)", bundleDir)
	}

	c, err := NewClient(&env.Cfg.Backup.GitHub, log)
	if err != nil {
		return err
	}
	return Push(ctx, c, bundleDir, log)
}

// RunPull restores a bundle from the configured repository.
func RunPull(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("backup")

	bundleName := cmd.Args().Get(0)
	if bundleName == "" {
		return errors.New("no bundle name has been specified")
	}

	dst := cmd.Args().Get(1)
	if dst == "" {
		dst = bundleName
	}
	dst, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if !cmd.Bool("overwrite") {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("destination already exists (%s), use overwrite to replace it", dst)
		}
	}

	c, err := NewClient(&env.Cfg.Backup.GitHub, log)
	if err != nil {
		return err
	}
	return Pull(ctx, c, bundleName, dst, log)
}
